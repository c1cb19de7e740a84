package session

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// maxInFlight bounds the arrival gate's weight; it is not a real limit on
// concurrent persisters, just the ceiling semaphore.Weighted requires.
const maxInFlight = 1 << 30

// arrivalGate is the in-flight counter gating persist against
// commit/rollback. Each persist call registers an arrival and departs on
// exit; commit and rollback await the gate draining to zero, the latter
// with a bound.
//
// It is built on a semaphore.Weighted sized to maxInFlight: persisters
// acquire one unit per call, and awaiting zero means acquiring the full
// weight, which only succeeds once every outstanding unit has been
// released.
type arrivalGate struct {
	sem *semaphore.Weighted
	n   atomic.Int64
}

func newArrivalGate() *arrivalGate {
	return &arrivalGate{sem: semaphore.NewWeighted(maxInFlight)}
}

func (g *arrivalGate) register(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.n.Add(1)
	return nil
}

func (g *arrivalGate) depart() {
	g.n.Add(-1)
	g.sem.Release(1)
}

// awaitZero blocks until no persist is in flight. Callers must have
// already stopped new arrivals (by leaving the OPEN state) before calling
// this, or it may never return.
func (g *arrivalGate) awaitZero(ctx context.Context) error {
	return g.sem.Acquire(ctx, maxInFlight)
}

func (g *arrivalGate) inFlight() int64 {
	return g.n.Load()
}
