package session

import (
	"context"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestArrivalGateRegisterDepart(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	g := newArrivalGate()

	is.Equal(g.inFlight(), int64(0))
	is.NoErr(g.register(ctx))
	is.Equal(g.inFlight(), int64(1))
	g.depart()
	is.Equal(g.inFlight(), int64(0))
}

func TestArrivalGateAwaitZeroBlocksWhileInFlight(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	g := newArrivalGate()

	is.NoErr(g.register(ctx))

	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := g.awaitZero(timeoutCtx)
	is.True(err != nil) // still in flight, should time out

	g.depart()
	is.NoErr(g.awaitZero(context.Background()))
}
