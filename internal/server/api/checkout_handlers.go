package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/dbx"
	"github.com/dmitrijs2005/liveon/internal/server/backups"
	"github.com/dmitrijs2005/liveon/internal/server/models"
	"github.com/google/uuid"
)

// ownedRun loads runID and checks it belongs to userID.
func (h *Handler) ownedRun(ctx context.Context, db dbx.DBTX, userID, runID string) (*models.Run, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, common.ErrorNotFound
	}
	run, err := h.repos.Runs(db).Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.UserID != userID {
		return nil, common.ErrRunMismatch
	}
	return run, nil
}

// CreateCheckoutSession starts payment for one of the caller's runs.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.payments == nil {
		writeError(w, http.StatusInternalServerError, "Stripe not configured")
		return
	}

	user, _, err := h.currentUser(w, r)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	var body struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RunID == "" {
		writeError(w, http.StatusBadRequest, "runId is required")
		return
	}

	if _, err := h.ownedRun(ctx, h.db, user.ID, body.RunID); err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrRunMismatch) {
			writeError(w, http.StatusBadRequest, "Unknown runId")
			return
		}
		h.log.Error(ctx, "run lookup failed", "run_id", body.RunID, "error", err)
		writeError(w, http.StatusInternalServerError, "Checkout failed")
		return
	}

	u, err := h.payments.CreateSession(ctx, user.ID, body.RunID)
	if err != nil {
		h.log.Error(ctx, "checkout session failed", "user_id", user.ID, "run_id", body.RunID, "error", err)
		writeError(w, http.StatusInternalServerError, "Checkout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

// ConfirmCheckout records the entitlement of a paid session.
func (h *Handler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.payments == nil {
		writeError(w, http.StatusInternalServerError, "Stripe not configured")
		return
	}

	user, _, err := h.currentUser(w, r)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	sess, err := h.payments.GetSession(ctx, body.SessionID)
	if err != nil {
		h.log.Error(ctx, "checkout lookup failed", "session_id", body.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Checkout lookup failed")
		return
	}
	if sess.UserID != user.ID {
		writeError(w, http.StatusForbidden, "Session does not belong to user")
		return
	}
	if !sess.Paid() {
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"paid":           false,
			"payment_status": sess.PaymentStatus,
		})
		return
	}

	ent := &models.Entitlement{
		RunID:       sess.RunID,
		UserID:      user.ID,
		CheckoutID:  sess.ID,
		AmountCents: sess.AmountTotal,
		Currency:    sess.Currency,
		PaidAt:      time.Now().UTC(),
	}

	err = dbx.WithTx(ctx, h.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := h.ownedRun(ctx, tx, user.ID, ent.RunID); err != nil {
			return fmt.Errorf("run %s: %w", ent.RunID, err)
		}
		return h.repos.Entitlements(tx).Upsert(ctx, ent)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrRunMismatch) {
			writeError(w, http.StatusBadRequest, "Unknown runId")
			return
		}
		h.log.Error(ctx, "entitlement not recorded", "run_id", ent.RunID, "error", err)
		writeError(w, http.StatusInternalServerError, "Checkout confirmation failed")
		return
	}

	doc := ent.Document()
	if err := h.store.PutArtifact(ctx, user.ID, ent.RunID, backups.EntitlementsFile, doc); err != nil {
		h.log.Warn(ctx, "entitlement artifact not written", "run_id", ent.RunID, "error", err)
	}

	h.log.Info(ctx, "payment confirmed", "user_id", user.ID, "run_id", ent.RunID, "checkout_id", sess.ID)
	writeJSON(w, http.StatusOK, map[string]any{"paid": true, "run_id": ent.RunID, "entitlement": doc})
}
