package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/liveon/internal/dbx"
	"github.com/dmitrijs2005/liveon/internal/server/repositories/entitlements"
	"github.com/dmitrijs2005/liveon/internal/server/repositories/runs"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Runs(db dbx.DBTX) runs.Repository
	Entitlements(db dbx.DBTX) entitlements.Repository
}
