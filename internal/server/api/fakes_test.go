package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/dbx"
	"github.com/dmitrijs2005/liveon/internal/logging"
	"github.com/dmitrijs2005/liveon/internal/server/auth"
	"github.com/dmitrijs2005/liveon/internal/server/backups"
	"github.com/dmitrijs2005/liveon/internal/server/blob"
	"github.com/dmitrijs2005/liveon/internal/server/config"
	"github.com/dmitrijs2005/liveon/internal/server/models"
	"github.com/dmitrijs2005/liveon/internal/server/payments"
	"github.com/dmitrijs2005/liveon/internal/server/repositories/entitlements"
	"github.com/dmitrijs2005/liveon/internal/server/repositories/runs"
	"github.com/stretchr/testify/require"
)

var alice = &models.UserProfile{ID: "u1", Name: "Alice"}

type fakeGraph struct {
	configured bool
	exchangeFn func(code string) (string, error)
	meFn       func(cred string) (*models.UserProfile, error)

	mu      sync.Mutex
	meCalls int
}

func (g *fakeGraph) Configured() bool { return g.configured }

func (g *fakeGraph) AuthCodeURL(state string) string {
	return "https://provider.test/dialog?state=" + state
}

func (g *fakeGraph) ExchangeCode(_ context.Context, code string) (string, error) {
	if g.exchangeFn == nil {
		return "tok-" + code, nil
	}
	return g.exchangeFn(code)
}

func (g *fakeGraph) Me(_ context.Context, cred string) (*models.UserProfile, error) {
	g.mu.Lock()
	g.meCalls++
	g.mu.Unlock()
	if g.meFn == nil {
		return alice, nil
	}
	return g.meFn(cred)
}

type fakeLeases struct {
	err  error
	next int
}

func (l *fakeLeases) Acquire(_ context.Context, userID string) (*backups.Job, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.next++
	return &backups.Job{UserID: userID, RunID: fmt.Sprintf("run-%d", l.next)}, nil
}

type fakeQueue struct {
	err  error
	jobs []*backups.Job
}

func (q *fakeQueue) Submit(job *backups.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fakeRuns struct {
	mu   sync.Mutex
	rows map[string]*models.Run
	err  error
}

func (f *fakeRuns) Create(_ context.Context, run *models.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[run.ID] = run
	return nil
}

func (f *fakeRuns) SetState(context.Context, string, models.RunState) error { return nil }

func (f *fakeRuns) Finish(context.Context, string, models.RunState, int, int, string) error {
	return nil
}

func (f *fakeRuns) Get(_ context.Context, runID string) (*models.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rows[runID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeRuns) ListByUser(_ context.Context, userID string, limit int) ([]*models.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Run
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRuns) LatestComplete(ctx context.Context, userID string) (*models.Run, error) {
	list, err := f.ListByUser(ctx, userID, len(f.rows)+1)
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		if r.State == models.RunComplete {
			return r, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRuns) MarkAbandoned(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeEntitlements struct {
	mu   sync.Mutex
	rows map[string]*models.Entitlement
}

func (f *fakeEntitlements) Upsert(_ context.Context, e *models.Entitlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[e.RunID] = e
	return nil
}

func (f *fakeEntitlements) Get(_ context.Context, runID string) (*models.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[runID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return e, nil
}

type fakeRepos struct {
	runs *fakeRuns
	ents *fakeEntitlements
}

func (m *fakeRepos) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeRepos) Runs(dbx.DBTX) runs.Repository                 { return m.runs }
func (m *fakeRepos) Entitlements(dbx.DBTX) entitlements.Repository { return m.ents }

type fakePayments struct {
	created  []string
	sessions map[string]*payments.Session
	err      error
}

func (p *fakePayments) CreateSession(_ context.Context, userID, runID string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.created = append(p.created, userID+"/"+runID)
	return "https://checkout.test/cs_1", nil
}

func (p *fakePayments) GetSession(_ context.Context, id string) (*payments.Session, error) {
	if p.err != nil {
		return nil, p.err
	}
	s, ok := p.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return s, nil
}

type fixture struct {
	cfg    *config.Config
	h      *Handler
	srv    http.Handler
	graph  *fakeGraph
	leases *fakeLeases
	queue  *fakeQueue
	blobs  *blob.MemoryStore
	store  *backups.Store
	runs   *fakeRuns
	ents   *fakeEntitlements
	pay    *fakePayments
	mock   sqlmock.Sqlmock
}

type fixtureOpt func(*Deps)

func withoutPayments() fixtureOpt {
	return func(d *Deps) {
		d.Config.StripeSecretKey = ""
		d.Payments = nil
	}
}

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StripeSecretKey = "sk_test_x"
	cfg.AuthRateBurst = 1000

	keys, err := auth.DeriveKeys("test-secret")
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		cfg:    cfg,
		graph:  &fakeGraph{configured: true},
		leases: &fakeLeases{},
		queue:  &fakeQueue{},
		blobs:  blob.NewMemoryStore("liveon-test"),
		runs:   &fakeRuns{rows: map[string]*models.Run{}},
		ents:   &fakeEntitlements{rows: map[string]*models.Entitlement{}},
		pay:    &fakePayments{sessions: map[string]*payments.Session{}},
		mock:   mock,
	}
	f.store = backups.NewStore(f.blobs)

	d := Deps{
		Config:   cfg,
		Logger:   logging.Nop{},
		Keys:     keys,
		Graph:    f.graph,
		Leases:   f.leases,
		Queue:    f.queue,
		Store:    f.store,
		DB:       db,
		Repos:    &fakeRepos{runs: f.runs, ents: f.ents},
		Payments: f.pay,
	}
	for _, o := range opts {
		o(&d)
	}

	f.h = NewHandler(d)
	f.srv = f.h.Routes()
	return f
}

// login returns the cookies a browser holds after a successful callback.
func (f *fixture) login(t *testing.T, cred string, p *models.UserProfile) []*http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, f.h.saveCredential(rec, req, cred))
	if p != nil {
		require.NoError(t, f.h.setProfileCookie(rec, p))
	}
	return rec.Result().Cookies()
}

func (f *fixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
