package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartify/catalog-scraper/internal/extractor"
	"github.com/kartify/catalog-scraper/internal/models"
	"github.com/kartify/catalog-scraper/internal/queue"
	"github.com/kartify/catalog-scraper/internal/sanitizer"
	"github.com/kartify/catalog-scraper/internal/scraper"
)

type stubGate struct{}

func (stubGate) Initialize(ctx context.Context) error    { return nil }
func (stubGate) IsAllowed(rawURL, userAgent string) bool { return true }

type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) FetchRenderedPage(ctx context.Context, url string) (string, error) {
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("%w: %s", scraper.ErrNavigationTimeout, url)
	}
	return html, nil
}

func (f *stubFetcher) Status() models.SessionStatus {
	return models.SessionStatus{Initialized: true, BrowserActive: true}
}

func (f *stubFetcher) Close() error { return nil }

type memorySaver struct {
	mu    sync.Mutex
	saved []string
}

func (s *memorySaver) SaveProduct(ctx context.Context, record *models.SanitizedProduct, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, record.SourceURL)
	return nil
}

const jobPage = `<html><body>
	<h1 class="product-title">Terracotta Vase</h1>
	<div class="product-description">A hand thrown terracotta vase finished with a natural matte glaze for indoor plants.</div>
</body></html>`

func newTestManager(t *testing.T, pages map[string]string, saver Saver) *Manager {
	t.Helper()

	service := scraper.NewService(stubGate{}, &stubFetcher{pages: pages}, extractor.NewEngine(),
		sanitizer.New(sanitizer.DefaultOptions()), scraper.Options{
			TargetDomain: "www.craftkart.in",
			UserAgent:    "Mozilla/5.0",
			MaxBatchSize: 10,
		})

	return NewManager(queue.NewInMemoryQueue(), service, saver, 10)
}

func TestEnqueueBounds(t *testing.T) {
	m := newTestManager(t, nil, nil)

	_, err := m.Enqueue(context.Background(), nil, "ops")
	assert.ErrorIs(t, err, scraper.ErrBatchInput)

	urls := make([]string, 11)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://www.craftkart.in/p/%d", i)
	}
	_, err = m.Enqueue(context.Background(), urls, "ops")
	assert.ErrorIs(t, err, scraper.ErrBatchInput)
}

func TestGetUnknownJob(t *testing.T) {
	m := newTestManager(t, nil, nil)

	_, err := m.Get("no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestWorkerProcessesJob(t *testing.T) {
	url := "https://www.craftkart.in/p/vase"
	saver := &memorySaver{}
	m := newTestManager(t, map[string]string{url: jobPage}, saver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.StartWorker(ctx)

	job, err := m.Enqueue(ctx, []string{url}, "ops")
	require.NoError(t, err)
	assert.Equal(t, StateQueued, job.State)

	require.Eventually(t, func() bool {
		current, err := m.Get(job.ID)
		return err == nil && current.State == StateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	current, err := m.Get(job.ID)
	require.NoError(t, err)
	require.NotNil(t, current.Result)
	assert.Equal(t, 1, current.Result.Summary.Successful)
	assert.NotNil(t, current.StartedAt)
	assert.NotNil(t, current.FinishedAt)

	saver.mu.Lock()
	defer saver.mu.Unlock()
	assert.Equal(t, []string{url}, saver.saved)
}

// Polling a job while the worker is mutating it must be safe: Get hands
// out a snapshot, never the struct the worker writes to.
func TestGetIsSafeWhilePolling(t *testing.T) {
	url := "https://www.craftkart.in/p/vase"
	m := newTestManager(t, map[string]string{url: jobPage}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.StartWorker(ctx)

	job, err := m.Enqueue(ctx, []string{url}, "ops")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := m.Get(job.ID)
		if err != nil {
			return false
		}
		// Touch every field the worker writes.
		_ = current.Result
		_ = current.StartedAt
		_ = current.FinishedAt
		return current.State == StateCompleted
	}, 5*time.Second, time.Millisecond)
}

func TestGetReturnsDetachedCopy(t *testing.T) {
	m := newTestManager(t, nil, nil)

	job, err := m.Enqueue(context.Background(), []string{"https://www.craftkart.in/p/1"}, "ops")
	require.NoError(t, err)

	job.State = StateFailed
	job.Error = "clobbered by caller"

	stored, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, stored.State)
	assert.Empty(t, stored.Error)

	stored.State = StateFailed
	again, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, again.State)
}

func TestWorkerRecordsPartialFailures(t *testing.T) {
	ok := "https://www.craftkart.in/p/ok"
	bad := "https://www.craftkart.in/p/missing"
	m := newTestManager(t, map[string]string{ok: jobPage}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.StartWorker(ctx)

	job, err := m.Enqueue(ctx, []string{ok, bad}, "ops")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := m.Get(job.ID)
		return err == nil && current.State == StateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	current, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchSummary{Total: 2, Successful: 1, Failed: 1}, current.Result.Summary)
}
