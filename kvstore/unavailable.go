package kvstore

import (
	"context"
	"time"
)

type unavailableStore struct{}

// NewUnavailable returns a store whose every operation fails with
// ErrUnavailable. It stands in for disabled or private-mode storage.
func NewUnavailable() Store {
	return unavailableStore{}
}

func (unavailableStore) Get(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (unavailableStore) Set(context.Context, string, string, time.Duration) error {
	return ErrUnavailable
}

func (unavailableStore) Delete(context.Context, string) error {
	return ErrUnavailable
}

func (unavailableStore) Close() error {
	return nil
}
