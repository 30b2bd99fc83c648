package backups

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/liveon/internal/server/blob"
	"github.com/dmitrijs2005/liveon/internal/server/models"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string][]models.Photo
	calls []string
	hook  func(path string)
}

func (f *fakeFetcher) FetchAllPages(_ context.Context, path, _ string) []models.Photo {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(path)
	}
	return f.pages[path]
}

type finishCall struct {
	runID  string
	state  models.RunState
	photos int
	posts  int
	errMsg string
}

// fakeRegistry applies the same state guards as the postgres registry.
// Rows it never saw created are updated unconditionally.
type fakeRegistry struct {
	mu       sync.Mutex
	created  []*models.Run
	states   map[string]models.RunState
	updated  map[string]time.Time
	finished []finishCall
	err      error
	now      func() time.Time
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		states:  map[string]models.RunState{},
		updated: map[string]time.Time{},
		now:     time.Now,
	}
}

func active(s models.RunState) bool {
	return s == models.RunQueued || s == models.RunRunning
}

func (f *fakeRegistry) Create(_ context.Context, run *models.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, run)
	f.states[run.ID] = run.State
	f.updated[run.ID] = f.now()
	return f.err
}

func (f *fakeRegistry) SetState(_ context.Context, runID string, state models.RunState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.states[runID]; !ok || active(cur) {
		f.states[runID] = state
		f.updated[runID] = f.now()
	}
	return f.err
}

func (f *fakeRegistry) Finish(_ context.Context, runID string, state models.RunState, photos, posts int, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, finishCall{runID, state, photos, posts, errMsg})

	cur, ok := f.states[runID]
	revive := cur == models.RunAbandoned && (state == models.RunComplete || state == models.RunFailed)
	if !ok || active(cur) || revive {
		f.states[runID] = state
		f.updated[runID] = f.now()
	}
	return f.err
}

func (f *fakeRegistry) MarkAbandoned(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, st := range f.states {
		if active(st) && f.updated[id].Before(before) {
			f.states[id] = models.RunAbandoned
			n++
		}
	}
	return n, nil
}

func (f *fakeRegistry) state(runID string) models.RunState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[runID]
}

// failingBlobs fails writes to keys with the given suffix.
type failingBlobs struct {
	*blob.MemoryStore
	suffix string
	err    error
}

func (f *failingBlobs) Put(ctx context.Context, key string, data []byte, opts blob.PutOptions) (string, error) {
	if strings.HasSuffix(key, f.suffix) {
		return "", f.err
	}
	return f.MemoryStore.Put(ctx, key, data, opts)
}

// summaryHook calls fn right after the summary artifact is stored.
type summaryHook struct {
	*blob.MemoryStore
	fn func()
}

func (s *summaryHook) Put(ctx context.Context, key string, data []byte, opts blob.PutOptions) (string, error) {
	etag, err := s.MemoryStore.Put(ctx, key, data, opts)
	if err == nil && strings.HasSuffix(key, SummaryFile) {
		s.fn()
	}
	return etag, err
}

// panickingBlobs panics on writes to keys with the given suffix.
type panickingBlobs struct {
	*blob.MemoryStore
	suffix string
}

func (p *panickingBlobs) Put(ctx context.Context, key string, data []byte, opts blob.PutOptions) (string, error) {
	if strings.HasSuffix(key, p.suffix) {
		panic("write to " + key)
	}
	return p.MemoryStore.Put(ctx, key, data, opts)
}

var errDiskFull = errors.New("disk full")
