package telegram

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type queuedUpdate struct {
	updateID int
	in       inbound
}

// chatQueues keeps one FIFO backlog per chat. A chat with a backlog has
// exactly one drain goroutine, so its updates never overlap; drains of
// different chats share a semaphore of size limit.
type chatQueues struct {
	mu      sync.Mutex
	pending map[string][]queuedUpdate
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	handle  func(queuedUpdate)
}

func newChatQueues(limit int, handle func(queuedUpdate)) *chatQueues {
	return &chatQueues{
		pending: make(map[string][]queuedUpdate),
		sem:     semaphore.NewWeighted(int64(limit)),
		handle:  handle,
	}
}

// push never blocks.
func (q *chatQueues) push(u queuedUpdate) {
	key := u.in.SessionID

	q.mu.Lock()
	backlog, draining := q.pending[key]
	q.pending[key] = append(backlog, u)
	q.mu.Unlock()

	if draining {
		return
	}
	q.wg.Add(1)
	go q.drain(key)
}

func (q *chatQueues) drain(key string) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		backlog := q.pending[key]
		if len(backlog) == 0 {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		next := backlog[0]
		backlog[0] = queuedUpdate{}
		q.pending[key] = backlog[1:]
		q.mu.Unlock()

		// Acquire only fails on a done context.
		_ = q.sem.Acquire(context.Background(), 1)
		q.handle(next)
		q.sem.Release(1)
	}
}

// wait blocks until every pushed update has been handled.
func (q *chatQueues) wait() {
	q.wg.Wait()
}
