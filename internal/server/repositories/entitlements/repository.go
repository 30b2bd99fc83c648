// Package entitlements declares the repository contract for paid runs.
package entitlements

import (
	"context"

	"github.com/dmitrijs2005/liveon/internal/server/models"
)

type Repository interface {
	// Upsert records that a run was paid for. Confirming the same run twice
	// keeps a single row carrying the latest checkout.
	Upsert(ctx context.Context, e *models.Entitlement) error

	// Get returns the entitlement of runID or common.ErrorNotFound.
	Get(ctx context.Context, runID string) (*models.Entitlement, error)
}
