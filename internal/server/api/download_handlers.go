package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/server/backups"
	"github.com/dmitrijs2005/liveon/internal/server/models"
)

type downloadFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Download returns expiring read-only links to one completed run of the
// caller: ?runId=... or the latest. Keys are derived from the
// authenticated user only, so no other prefix is reachable.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, _, err := h.currentUser(w, r)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	var run *models.Run
	if runID := r.URL.Query().Get("runId"); runID != "" {
		run, err = h.ownedRun(ctx, h.db, user.ID, runID)
		if err == nil && run.State != models.RunComplete {
			err = common.ErrorNotFound
		}
	} else {
		run, err = h.repos.Runs(h.db).LatestComplete(ctx, user.ID)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrRunMismatch) {
			writeError(w, http.StatusNotFound, "No completed backup")
			return
		}
		h.log.Error(ctx, "run lookup failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate download")
		return
	}

	if h.cfg.PaymentsEnabled() {
		if _, err := h.repos.Entitlements(h.db).Get(ctx, run.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				writeJSON(w, http.StatusPaymentRequired, map[string]string{
					"error":  common.ErrPaymentRequired.Error(),
					"run_id": run.ID,
				})
				return
			}
			h.log.Error(ctx, "entitlement lookup failed", "run_id", run.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate download")
			return
		}
	}

	ttl := h.cfg.DownloadURLTTL
	expires := time.Now().Add(ttl).UTC()
	blobs := h.store.Blobs()

	names := append(append([]string{}, backups.ArtifactNames...), backups.EntitlementsFile)
	files := make([]downloadFile, 0, len(names))
	for _, name := range names {
		key := backups.ArtifactKey(user.ID, run.ID, name)

		ok, err := blobs.Exists(ctx, key)
		if err != nil {
			h.log.Error(ctx, "artifact check failed", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate download")
			return
		}
		if !ok {
			continue
		}

		u, err := blobs.PresignGet(ctx, key, ttl)
		if err != nil {
			h.log.Error(ctx, "presign failed", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate download")
			return
		}
		files = append(files, downloadFile{Name: name, URL: u})
	}

	if len(files) == 0 {
		writeError(w, http.StatusNotFound, "No completed backup")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":     run.ID,
		"expires_at": expires.Format(time.RFC3339),
		"files":      files,
	})
}
