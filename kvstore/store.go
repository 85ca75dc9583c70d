// Package kvstore is the durable key-value store the favorites and history
// stores persist to. Values are opaque strings, usually JSON.
package kvstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// ProbeKey is the sentinel written and removed by Probe.
const ProbeKey = "currency_converter_storage_test"

// Store is a key-value backend. Implementations must be safe for concurrent
// use. Get returns ErrKeyNotFound for a missing or expired key; Delete of a
// missing key is not an error. An expiry <= 0 means the value never expires.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiry time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func SetTyped[T any](ctx context.Context, store Store, key string, value T, expiry time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJsonMarshal, err)
	}

	return store.Set(ctx, key, string(data), expiry)
}

// GetTyped reads key and decodes it into T. Decoding failures are reported
// as ErrJsonUnmarshal so callers can treat corrupt data separately from a
// backend fault.
func GetTyped[T any](ctx context.Context, store Store, key string) (T, error) {
	var result T

	value, err := store.Get(ctx, key)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(value), &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrJsonUnmarshal, err)
	}

	return result, nil
}

// Probe checks that store accepts writes by setting and deleting ProbeKey.
func Probe(ctx context.Context, store Store) error {
	if store == nil {
		return ErrUnavailable
	}
	if err := store.Set(ctx, ProbeKey, ProbeKey, 0); err != nil {
		return fmt.Errorf("probe write: %w", err)
	}
	if err := store.Delete(ctx, ProbeKey); err != nil {
		return fmt.Errorf("probe delete: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrKeyNotFound)
}
