// Package kvstoretest provides store doubles for tests in other packages.
package kvstoretest

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/infigaming-com/go-fxconvert/kvstore"
)

// ErrInjected is returned by a Faulty store for every injected failure.
var ErrInjected = errors.New("kvstoretest: injected failure")

// Faulty wraps a store and fails selected operations on demand. It also
// counts calls so tests can assert that a degraded caller stopped writing.
type Faulty struct {
	inner kvstore.Store

	failGets    atomic.Bool
	failSets    atomic.Bool
	failDeletes atomic.Bool

	gets    atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

func NewFaulty(inner kvstore.Store) *Faulty {
	return &Faulty{inner: inner}
}

func (f *Faulty) FailGets(v bool)    { f.failGets.Store(v) }
func (f *Faulty) FailSets(v bool)    { f.failSets.Store(v) }
func (f *Faulty) FailDeletes(v bool) { f.failDeletes.Store(v) }

func (f *Faulty) Gets() int64    { return f.gets.Load() }
func (f *Faulty) Sets() int64    { return f.sets.Load() }
func (f *Faulty) Deletes() int64 { return f.deletes.Load() }

func (f *Faulty) Get(ctx context.Context, key string) (string, error) {
	f.gets.Add(1)
	if f.failGets.Load() {
		return "", ErrInjected
	}
	return f.inner.Get(ctx, key)
}

func (f *Faulty) Set(ctx context.Context, key string, value string, expiry time.Duration) error {
	f.sets.Add(1)
	if f.failSets.Load() {
		return ErrInjected
	}
	return f.inner.Set(ctx, key, value, expiry)
}

func (f *Faulty) Delete(ctx context.Context, key string) error {
	f.deletes.Add(1)
	if f.failDeletes.Load() {
		return ErrInjected
	}
	return f.inner.Delete(ctx, key)
}

func (f *Faulty) Close() error {
	return f.inner.Close()
}
