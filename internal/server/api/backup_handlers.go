package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/server/models"
)

const historyLimit = 20

// StartBackup takes the lease and queues a run; the pipeline itself runs
// in the background and is observed through BackupStatus.
func (h *Handler) StartBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, cred, err := h.currentUser(w, r)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	job, err := h.leases.Acquire(ctx, user.ID)
	if errors.Is(err, common.ErrBackupRunning) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Backup already running"})
		return
	}
	if err != nil {
		h.log.Error(ctx, "backup lease failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start backup")
		return
	}

	job.Credential = cred
	if err := h.queue.Submit(job); err != nil {
		h.log.Warn(ctx, "backup not queued", "user_id", user.ID, "run_id", job.RunID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Backup queue is full, try again later")
		return
	}

	h.log.Info(ctx, "backup queued", "user_id", user.ID, "run_id", job.RunID)
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Backup started", "runId": job.RunID})
}

// BackupStatus returns the caller's status document.
func (h *Handler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.currentUser(w, r)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	st, _, err := h.store.GetStatus(r.Context(), user.ID)
	if err != nil {
		h.log.Warn(r.Context(), "status read failed", "user_id", user.ID, "error", err)
		st = nil
	}
	if st == nil {
		st = models.IdleStatus()
	}

	writeJSON(w, http.StatusOK, st)
}

// ListBackups returns the caller's recent runs.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.currentUser(w, r)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	list, err := h.repos.Runs(h.db).ListByUser(r.Context(), user.ID, historyLimit)
	if err != nil {
		h.log.Error(r.Context(), "run history failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load backups")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": list})
}
