// Package kvtest verifies a Store against an in-memory shadow copy of
// the expected state. The shadow map is an explicit fixture owned by
// the Checker, not ambient global state: every mutation goes through a
// helper that applies it to both the store and the shadow and asserts
// that the two agree.
package kvtest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvpd/kvpd/internal/kvstore"
)

type Checker struct {
	t     *testing.T
	ctx   context.Context
	store kvstore.Store
	gold  map[string][]byte
}

// New wraps a connected store. The shadow map starts empty, so the
// store must be empty too.
func New(t *testing.T, store kvstore.Store) *Checker {
	t.Helper()
	return &Checker{
		t:     t,
		ctx:   context.Background(),
		store: store,
		gold:  make(map[string][]byte),
	}
}

// Create inserts the pair. A key already in the shadow must be rejected
// with ErrAlreadyExists and keep its old value.
func (c *Checker) Create(key string, value []byte) {
	c.t.Helper()
	err := c.store.Create(c.ctx, key, value)
	if old, ok := c.gold[key]; ok {
		require.ErrorIs(c.t, err, kvstore.ErrAlreadyExists)
		c.requireRead(key, old)
		return
	}
	require.NoError(c.t, err)
	c.gold[key] = value
	c.requireRead(key, value)
}

// Read asserts the store agrees with the shadow about the key.
func (c *Checker) Read(key string) {
	c.t.Helper()
	got, err := c.store.Read(c.ctx, key)
	want, ok := c.gold[key]
	if !ok {
		require.ErrorIs(c.t, err, kvstore.ErrNotFound)
		return
	}
	require.NoError(c.t, err)
	require.Equal(c.t, want, got)
}

// Update replaces the value. A key absent from the shadow must fail
// with ErrNotFound and stay absent.
func (c *Checker) Update(key string, value []byte) {
	c.t.Helper()
	err := c.store.Update(c.ctx, key, value)
	if _, ok := c.gold[key]; !ok {
		require.ErrorIs(c.t, err, kvstore.ErrNotFound)
		c.requireAbsent(key)
		return
	}
	require.NoError(c.t, err)
	c.gold[key] = value
	c.requireRead(key, value)
}

// Delete removes the pair. Succeeds whether or not the key exists.
func (c *Checker) Delete(key string) {
	c.t.Helper()
	require.NoError(c.t, c.store.Delete(c.ctx, key))
	delete(c.gold, key)
	c.requireAbsent(key)
}

// VerifyAll checks the store's full key set and every value against
// the shadow.
func (c *Checker) VerifyAll() {
	c.t.Helper()
	keys, err := c.store.Keys(c.ctx)
	require.NoError(c.t, err)

	want := make([]string, 0, len(c.gold))
	for k := range c.gold {
		want = append(want, k)
	}
	sort.Strings(want)
	if len(keys) == 0 {
		keys = []string{}
	}
	if len(want) == 0 {
		want = []string{}
	}
	require.Equal(c.t, want, keys)

	for k, v := range c.gold {
		c.requireRead(k, v)
	}
}

func (c *Checker) requireRead(key string, want []byte) {
	c.t.Helper()
	got, err := c.store.Read(c.ctx, key)
	require.NoError(c.t, err)
	require.Equal(c.t, want, got)
}

func (c *Checker) requireAbsent(key string) {
	c.t.Helper()
	_, err := c.store.Read(c.ctx, key)
	require.ErrorIs(c.t, err, kvstore.ErrNotFound)
}
