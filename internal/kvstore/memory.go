package kvstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryKV is an in-memory Store backed by a plain map. Data survives
// Disconnect/Connect on the same instance but not process restarts.
type MemoryKV struct {
	mu        sync.RWMutex
	data      map[string][]byte
	connected bool
}

func NewMemory() *MemoryKV {
	return &MemoryKV{}
}

func (kv *MemoryKV) Connect(ctx context.Context) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.data == nil {
		kv.data = make(map[string][]byte)
	}
	kv.connected = true
	return nil
}

func (kv *MemoryKV) Disconnect(ctx context.Context) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.connected = false
	return nil
}

func (kv *MemoryKV) Create(ctx context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if !kv.connected {
		return ErrNotConnected
	}
	if _, ok := kv.data[key]; ok {
		return ErrAlreadyExists
	}
	kv.data[key] = append([]byte(nil), value...)
	return nil
}

func (kv *MemoryKV) Read(ctx context.Context, key string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	if !kv.connected {
		return nil, ErrNotConnected
	}
	v, ok := kv.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	// copy the value to avoid returning a reference to the data.
	return append([]byte(nil), v...), nil
}

func (kv *MemoryKV) Update(ctx context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if !kv.connected {
		return ErrNotConnected
	}
	if _, ok := kv.data[key]; !ok {
		return ErrNotFound
	}
	kv.data[key] = append([]byte(nil), value...)
	return nil
}

func (kv *MemoryKV) Delete(ctx context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if !kv.connected {
		return ErrNotConnected
	}
	delete(kv.data, key)
	return nil
}

func (kv *MemoryKV) Keys(ctx context.Context) ([]string, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	if !kv.connected {
		return nil, ErrNotConnected
	}
	keys := make([]string, 0, len(kv.data))
	for k := range kv.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
