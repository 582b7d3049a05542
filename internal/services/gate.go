package services

import "sync"

// CodeGate tracks codes with a request in flight. A second request for a
// held code is turned away rather than queued.
type CodeGate struct {
	held sync.Map // code -> struct{}
}

// Acquire claims code and reports whether it was free.
func (g *CodeGate) Acquire(code string) bool {
	_, loaded := g.held.LoadOrStore(code, struct{}{})
	return !loaded
}

// Release frees code. Releasing a free code is a no-op.
func (g *CodeGate) Release(code string) {
	g.held.Delete(code)
}

// Held reports whether code is currently claimed.
func (g *CodeGate) Held(code string) bool {
	_, ok := g.held.Load(code)
	return ok
}
