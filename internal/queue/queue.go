package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueClosed = errors.New("queue is closed")
)

// BatchJob is an asynchronous batch scrape request. Jobs are processed
// strictly first-in first-out; the pipeline itself stays sequential.
type BatchJob struct {
	ID         string    `json:"id"`
	URLs       []string  `json:"urls"`
	Actor      string    `json:"actor"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Queue interface {
	Push(ctx context.Context, job *BatchJob) error
	Pop(ctx context.Context) (*BatchJob, error)
	Size() int
	Close() error
}

// InMemoryQueue is the default single-process queue.
type InMemoryQueue struct {
	jobs   []*BatchJob
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

func NewInMemoryQueue() *InMemoryQueue {
	q := &InMemoryQueue{
		jobs: make([]*BatchJob, 0),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *InMemoryQueue) Push(ctx context.Context, job *BatchJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.jobs = append(q.jobs, job)
	q.cond.Signal()
	return nil
}

// Pop blocks until a job is available, the queue closes, or the context
// is cancelled.
func (q *InMemoryQueue) Pop(ctx context.Context) (*BatchJob, error) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			q.cond.Broadcast()
		case <-done:
		}
	}()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.cond.Wait()
	}

	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
	return nil
}
