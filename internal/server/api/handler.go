// Package api exposes the LiveOn HTTP surface: login, backup control,
// checkout and downloads.
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/logging"
	"github.com/dmitrijs2005/liveon/internal/server/auth"
	"github.com/dmitrijs2005/liveon/internal/server/backups"
	"github.com/dmitrijs2005/liveon/internal/server/config"
	"github.com/dmitrijs2005/liveon/internal/server/models"
	"github.com/dmitrijs2005/liveon/internal/server/payments"
	"github.com/dmitrijs2005/liveon/internal/server/repositories/repomanager"
	"github.com/gorilla/sessions"
)

// Graph is the identity provider as seen by the handlers.
type Graph interface {
	Configured() bool
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	Me(ctx context.Context, credential string) (*models.UserProfile, error)
}

// LeaseAcquirer takes the per-user backup lease.
type LeaseAcquirer interface {
	Acquire(ctx context.Context, userID string) (*backups.Job, error)
}

// JobQueue accepts acquired jobs for background execution.
type JobQueue interface {
	Submit(job *backups.Job) error
}

// Deps are the collaborators of Handler.
type Deps struct {
	Config   *config.Config
	Logger   logging.Logger
	Keys     *auth.Keys
	Graph    Graph
	Leases   LeaseAcquirer
	Queue    JobQueue
	Store    *backups.Store
	DB       *sql.DB
	Repos    repomanager.RepositoryManager
	Payments payments.Processor
}

type Handler struct {
	cfg      *config.Config
	log      logging.Logger
	state    *auth.StateSigner
	keys     *auth.Keys
	cookies  *sessions.CookieStore
	graph    Graph
	leases   LeaseAcquirer
	queue    JobQueue
	store    *backups.Store
	db       *sql.DB
	repos    repomanager.RepositoryManager
	payments payments.Processor
	limiter  *RateLimiter
}

func NewHandler(d Deps) *Handler {
	store := sessions.NewCookieStore(d.Keys.CookieHash, d.Keys.CookieBlock)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(common.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   d.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	return &Handler{
		cfg:      d.Config,
		log:      d.Logger,
		state:    auth.NewStateSigner(d.Keys.State),
		keys:     d.Keys,
		cookies:  store,
		graph:    d.Graph,
		leases:   d.Leases,
		queue:    d.Queue,
		store:    d.Store,
		db:       d.DB,
		repos:    d.Repos,
		payments: d.Payments,
		limiter:  NewRateLimiter(d.Config.AuthRateLimit, d.Config.AuthRateBurst),
	}
}
