package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kartify/catalog-scraper/internal/models"
	"github.com/kartify/catalog-scraper/internal/queue"
	"github.com/kartify/catalog-scraper/internal/scraper"
)

var ErrJobNotFound = errors.New("job not found")

type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

type Job struct {
	ID         string              `json:"id"`
	State      JobState            `json:"state"`
	URLs       []string            `json:"urls"`
	Actor      string              `json:"actor"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Result     *models.BatchResult `json:"result,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Saver persists successfully scraped records. Saves are attributed to
// the actor who enqueued the job.
type Saver interface {
	SaveProduct(ctx context.Context, record *models.SanitizedProduct, actor string) error
}

// Manager accepts batch jobs, feeds them through the scrape service one
// at a time, and tracks their lifecycle for polling clients.
type Manager struct {
	queue        queue.Queue
	service      *scraper.Service
	saver        Saver
	maxBatchSize int
	logger       *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager(q queue.Queue, service *scraper.Service, saver Saver, maxBatchSize int) *Manager {
	if maxBatchSize <= 0 {
		maxBatchSize = 10
	}
	return &Manager{
		queue:        q,
		service:      service,
		saver:        saver,
		maxBatchSize: maxBatchSize,
		logger:       slog.Default().With("component", "jobs"),
		jobs:         make(map[string]*Job),
	}
}

// Enqueue validates batch bounds up front so malformed requests fail at
// submission instead of inside the worker.
func (m *Manager) Enqueue(ctx context.Context, urls []string, actor string) (*Job, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: empty url list", scraper.ErrBatchInput)
	}
	if len(urls) > m.maxBatchSize {
		return nil, fmt.Errorf("%w: %d urls exceeds maximum of %d", scraper.ErrBatchInput, len(urls), m.maxBatchSize)
	}

	job := &Job{
		ID:         uuid.NewString(),
		State:      StateQueued,
		URLs:       urls,
		Actor:      actor,
		EnqueuedAt: time.Now(),
	}

	if err := m.queue.Push(ctx, &queue.BatchJob{
		ID:         job.ID,
		URLs:       urls,
		Actor:      actor,
		EnqueuedAt: job.EnqueuedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := *job
	m.mu.Unlock()

	m.logger.Info("job enqueued", "jobID", job.ID, "urls", len(urls), "actor", actor)
	return &snapshot, nil
}

// Get returns a snapshot of the job. The worker mutates the tracked
// struct under the lock; handing out the live pointer would let the
// HTTP handlers read it unsynchronized.
func (m *Manager) Get(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	snapshot := *job
	return &snapshot, nil
}

// StartWorker consumes jobs until the context is cancelled or the queue
// closes. One worker per process; the browser session is not shareable.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")
	for {
		batch, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				m.logger.Info("job worker stopped")
				return
			}
			m.logger.Error("failed to pop job", "error", err)
			continue
		}

		m.process(ctx, batch)
	}
}

func (m *Manager) process(ctx context.Context, batch *queue.BatchJob) {
	job := m.track(batch)

	m.setRunning(job)

	result, err := m.service.ScrapeBatch(ctx, batch.URLs)
	if err != nil {
		m.setFailed(job, err)
		return
	}

	if m.saver != nil {
		for _, item := range result.Results {
			if err := m.saver.SaveProduct(ctx, item.Record, batch.Actor); err != nil {
				m.logger.Warn("failed to persist record", "jobID", job.ID, "url", item.URL, "error", err)
			}
		}
	}

	m.setCompleted(job, result)
}

// track re-registers a job popped from a shared queue that this process
// did not enqueue.
func (m *Manager) track(batch *queue.BatchJob) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[batch.ID]; ok {
		return job
	}

	job := &Job{
		ID:         batch.ID,
		State:      StateQueued,
		URLs:       batch.URLs,
		Actor:      batch.Actor,
		EnqueuedAt: batch.EnqueuedAt,
	}
	m.jobs[batch.ID] = job
	return job
}

func (m *Manager) setRunning(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	job.State = StateRunning
	job.StartedAt = &now
}

func (m *Manager) setCompleted(job *Job, result *models.BatchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	job.State = StateCompleted
	job.FinishedAt = &now
	job.Result = result

	m.logger.Info("job completed", "jobID", job.ID,
		"successful", result.Summary.Successful, "failed", result.Summary.Failed)
}

func (m *Manager) setFailed(job *Job, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	job.State = StateFailed
	job.FinishedAt = &now
	job.Error = err.Error()

	m.logger.Error("job failed", "jobID", job.ID, "error", err)
}
