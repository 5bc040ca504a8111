package cache

import (
	"sort"
	"sync"
)

// Registry maps keys to values for the lifetime of a scene.
// Renderers keep their node and handle tables in one.
type Registry[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// NewRegistry creates an empty Registry
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		items: make(map[K]V),
	}
}

// Get retrieves a value by key
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[key]
	return v, ok
}

// Set stores a value by key
func (r *Registry[K, V]) Set(key K, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = v
}

// Update applies fn to the value stored under key while holding the lock.
// It returns false if the key is absent.
func (r *Registry[K, V]) Update(key K, fn func(V) V) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[key]
	if !ok {
		return false
	}
	r.items[key] = fn(v)
	return true
}

// Delete removes a key and returns the value it held
func (r *Registry[K, V]) Delete(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[key]
	delete(r.items, key)
	return v, ok
}

// Len returns the number of entries
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Values returns a snapshot of all values ordered by less applied to their keys.
func (r *Registry[K, V]) Values(less func(a, b K) bool) []V {
	r.mu.RLock()
	keys := make([]K, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	out := make([]V, len(keys))
	for i, k := range keys {
		out[i] = r.items[k]
	}
	r.mu.RUnlock()
	return out
}

// Reset clears all entries
func (r *Registry[K, V]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[K]V)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  uint
}

func (c *SafeCounter) Value() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v uint) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

// Inc increments the counter and returns the new value.
func (c *SafeCounter) Inc() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v++
	return c.v
}
