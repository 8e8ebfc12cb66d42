package tubestitch

import (
	"sync"
)

// Pool is a simple pool of Engines sharing one configuration so several
// workers can stitch different videos in parallel.  Each Engine owns its own
// state, a worker should hold an Engine for the whole of a video
type Pool struct {
	// pool of engines
	engines chan *Engine
	// size of pool
	size   int
	mu     sync.Mutex
	closed bool
}

// NewPool creates a new engine pool
func NewPool(size int, cfg Config, opts ...Option) (*Pool, error) {
	p := &Pool{
		engines: make(chan *Engine, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		e, err := NewEngine(cfg, opts...)

		if err != nil {
			// discard any engines that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(e)
	}

	return p, nil
}

// Get an engine from the pool, blocks until one is available.  Returns nil
// once the pool is closed
func (p *Pool) Get() *Engine {
	return <-p.engines
}

// Return an engine to the pool.  The engine is reset so any open tracks it
// still holds are discarded, call EndVideo first to emit them
func (p *Pool) Return(e *Engine) {

	e.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	select {
	case p.engines <- e:
	default:
		// pool is full
	}
}

// Size returns the number of engines in the pool
func (p *Pool) Size() int {
	return p.size
}

// Close the pool
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true

	// close channel and drain the engines
	close(p.engines)

	for range p.engines {
	}
}
