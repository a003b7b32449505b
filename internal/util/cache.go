package util

import (
	"container/list"
	"errors"
	"sync"
)

type (
	// CompileCache holds compiled values keyed by a source hash, keeping
	// the maxSize most recently used. Concurrent misses on the same key
	// share one compilation
	CompileCache[T any] struct {
		entries map[string]*list.Element
		pending map[string]*compilation[T]
		order   *list.List
		stats   CacheStats
		maxSize int
		mu      sync.Mutex
	}

	// Compiler produces the value stored under a key
	Compiler[T any] func() (T, error)

	// CacheStats counts lookups answered without compiling, and
	// compilations started
	CacheStats struct {
		Hits   int
		Misses int
	}

	compilation[T any] struct {
		value T
		err   error
		done  chan struct{}
	}

	cached[T any] struct {
		value T
		key   string
	}
)

var errCompileAborted = errors.New("compilation aborted")

func NewCompileCache[T any](maxSize int) *CompileCache[T] {
	return &CompileCache[T]{
		entries: map[string]*list.Element{},
		pending: map[string]*compilation[T]{},
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Get returns the value stored under key, calling compile on a miss.
// Failed compilations are returned to every waiter but not stored
func (c *CompileCache[T]) Get(key string, compile Compiler[T]) (T, error) {
	c.mu.Lock()
	if value, ok := c.lookup(key); ok {
		c.stats.Hits++
		c.mu.Unlock()
		return value, nil
	}
	if p, ok := c.pending[key]; ok {
		c.stats.Hits++
		c.mu.Unlock()
		<-p.done
		return p.result()
	}
	c.stats.Misses++
	p := &compilation[T]{
		err:  errCompileAborted,
		done: make(chan struct{}),
	}
	c.pending[key] = p
	c.mu.Unlock()

	defer c.settle(key, p)
	p.value, p.err = compile()
	return p.result()
}

// Len returns the number of stored values
func (c *CompileCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the lookup counters
func (c *CompileCache[T]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *CompileCache[T]) lookup(key string) (T, bool) {
	elem, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cached[T]).value, true
}

func (c *CompileCache[T]) settle(key string, p *compilation[T]) {
	c.mu.Lock()
	delete(c.pending, key)
	if p.err == nil {
		c.entries[key] = c.order.PushFront(&cached[T]{
			key:   key,
			value: p.value,
		})
		for c.order.Len() > c.maxSize {
			oldest := c.order.Remove(c.order.Back()).(*cached[T])
			delete(c.entries, oldest.key)
		}
	}
	c.mu.Unlock()
	close(p.done)
}

func (p *compilation[T]) result() (T, error) {
	if p.err != nil {
		var zero T
		return zero, p.err
	}
	return p.value, nil
}
