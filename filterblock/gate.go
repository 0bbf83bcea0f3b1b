package filterblock

import "sync"

// Gate is the condvar-signal idiom translated to Go: a reader's initial
// filter load happens off the hot path on the background loader, and
// KeyMayMatch must block until that load finishes exactly once. Gate starts
// closed; Open is idempotent and safe to call from exactly the goroutine
// that finished the load.
type Gate struct {
	mu   sync.Mutex
	cond *sync.Cond
	done bool
}

func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Wait blocks until Open has been called.
func (g *Gate) Wait() {
	g.mu.Lock()
	for !g.done {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// Open signals every current and future waiter.
func (g *Gate) Open() {
	g.mu.Lock()
	g.done = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}
