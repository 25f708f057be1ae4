package memory

import "sync"

// Pool recycles top-level (connection-scoped) arenas across connections,
// the same role the teacher's ArenaPool (memory/arena.go) plays for
// request-scoped arenas under GOEXPERIMENT=arenas.
type Pool struct {
	pool sync.Pool
}

// NewPool creates an arena pool. initialCapacity sizes the first chunk of
// freshly-minted arenas; recycled arenas restart with a single
// DefaultChunkSize chunk.
func NewPool(initialCapacity int) *Pool {
	p := &Pool{}
	p.pool.New = func() any {
		return NewSized(initialCapacity)
	}
	return p
}

// Get returns an arena ready for use, either freshly allocated or recycled.
func (p *Pool) Get() *Arena {
	return p.pool.Get().(*Arena)
}

// Put destroys a's contents and returns it to the pool for reuse. After Put,
// a is a fresh, empty arena again (single first chunk, no large allocations).
func (p *Pool) Put(a *Arena) {
	a.Destroy()
	a.mu.Lock()
	a.destroyed = false
	if len(a.chunks) == 0 {
		a.chunks = append(a.chunks, newChunk(DefaultChunkSize))
	}
	a.mu.Unlock()
	p.pool.Put(a)
}
