// Package guard serializes mutating operations per project id. Each id
// gets its own lock so operations on distinct projects proceed
// independently; there is no global write lock.
package guard

import (
	"context"
	"sync"
)

// Guard is an in-process keyed mutex table. Idle keys are reclaimed so
// the table does not grow with every project ever touched.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{locks: make(map[string]*entry)}
}

// Do runs fn while holding the lock for id. Waiting honors context
// cancellation; the lock is released on every exit path, including a
// panic inside fn.
func (g *Guard) Do(ctx context.Context, id string, fn func() error) error {
	release, err := g.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (g *Guard) acquire(ctx context.Context, id string) (func(), error) {
	g.mu.Lock()
	e, ok := g.locks[id]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		g.locks[id] = e
	}
	e.refs++
	g.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			g.put(id, e)
		}, nil
	case <-ctx.Done():
		g.put(id, e)
		return nil, ctx.Err()
	}
}

func (g *Guard) put(id string, e *entry) {
	g.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(g.locks, id)
	}
	g.mu.Unlock()
}
