package scanner

import "context"

// DefaultGateSize bounds how many symbols are fetched and analyzed at
// once. Kept small to avoid overloading the broker connection.
const DefaultGateSize = 4

// ConcurrencyGate is a counting semaphore limiting in-flight symbol
// processing. Release order is FIFO-ish; there is no fairness guarantee
// beyond that.
type ConcurrencyGate struct {
	slots chan struct{}
}

// NewConcurrencyGate creates a gate with the given number of slots.
func NewConcurrencyGate(size int) *ConcurrencyGate {
	if size < 1 {
		size = 1
	}
	return &ConcurrencyGate{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or the context is done.
func (g *ConcurrencyGate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (g *ConcurrencyGate) Release() {
	<-g.slots
}

// InFlight returns how many slots are currently held.
func (g *ConcurrencyGate) InFlight() int {
	return len(g.slots)
}

// Size returns the maximum number of concurrent holders.
func (g *ConcurrencyGate) Size() int {
	return cap(g.slots)
}
