// Package keylock serializes work per key while leaving distinct keys
// independent.
package keylock

import (
	"context"
	"sync"
)

// Locker hands out per-key exclusive locks. The returned function releases
// the lock and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Entries are dropped once no caller
// holds or waits on them.
type Local struct {
	mu   sync.Mutex
	keys map[string]*entry
}

func NewLocal() *Local {
	return &Local{keys: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()
}

// size reports how many keys are tracked.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
