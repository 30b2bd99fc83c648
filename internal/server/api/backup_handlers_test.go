package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/server/backups"
	"github.com/dmitrijs2005/liveon/internal/server/blob"
	"github.com/dmitrijs2005/liveon/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartBackup(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(httptest.NewRequest(http.MethodPost, "/backup/start", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Not authenticated"}`, rec.Body.String())
		assert.Empty(t, f.queue.jobs)
	})

	t.Run("queues a run with the caller credential", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(httptest.NewRequest(http.MethodPost, "/backup/start", nil), f.login(t, "tok", alice)...)

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, `{"message":"Backup started","runId":"run-1"}`, rec.Body.String())

		require.Len(t, f.queue.jobs, 1)
		job := f.queue.jobs[0]
		assert.Equal(t, alice.ID, job.UserID)
		assert.Equal(t, "run-1", job.RunID)
		assert.Equal(t, "tok", job.Credential)
	})

	t.Run("already running", func(t *testing.T) {
		f := newFixture(t)
		f.leases.err = common.ErrBackupRunning

		rec := f.do(httptest.NewRequest(http.MethodPost, "/backup/start", nil), f.login(t, "tok", alice)...)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Backup already running"}`, rec.Body.String())
		assert.Empty(t, f.queue.jobs)
	})

	t.Run("lease storage failure", func(t *testing.T) {
		f := newFixture(t)
		f.leases.err = errors.New("s3 down")

		rec := f.do(httptest.NewRequest(http.MethodPost, "/backup/start", nil), f.login(t, "tok", alice)...)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to start backup"}`, rec.Body.String())
	})

	t.Run("queue full", func(t *testing.T) {
		f := newFixture(t)
		f.queue.err = common.ErrQueueFull

		rec := f.do(httptest.NewRequest(http.MethodPost, "/backup/start", nil), f.login(t, "tok", alice)...)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestBackupStatus(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(httptest.NewRequest(http.MethodGet, "/backup/status", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("idle when no document", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(httptest.NewRequest(http.MethodGet, "/backup/status", nil), f.login(t, "tok", alice)...)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"running":false,"progress":0,"last_updated":0}`, rec.Body.String())
	})

	t.Run("returns the stored document", func(t *testing.T) {
		f := newFixture(t)
		st := &models.Status{Running: true, Progress: 40, Step: models.StepProcessing, LastUpdated: 1700000000000, RunID: "r1"}
		_, err := f.store.PutStatus(context.Background(), alice.ID, st, "")
		require.NoError(t, err)

		rec := f.do(httptest.NewRequest(http.MethodGet, "/backup/status", nil), f.login(t, "tok", alice)...)

		require.Equal(t, http.StatusOK, rec.Code)
		var got models.Status
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, *st, got)
	})

	t.Run("never reads another user's document", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.PutStatus(context.Background(), "u2", &models.Status{Running: true, Progress: 80}, "")
		require.NoError(t, err)

		rec := f.do(httptest.NewRequest(http.MethodGet, "/backup/status", nil), f.login(t, "tok", alice)...)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"running":false,"progress":0,"last_updated":0}`, rec.Body.String())
	})

	t.Run("corrupt document reads as idle", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.blobs.Put(context.Background(), backups.StatusKey(alice.ID), []byte("{"), blob.PutOptions{})
		require.NoError(t, err)

		rec := f.do(httptest.NewRequest(http.MethodGet, "/backup/status", nil), f.login(t, "tok", alice)...)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"running":false,"progress":0,"last_updated":0}`, rec.Body.String())
	})
}

func TestListBackups(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.runs.rows["a"] = &models.Run{ID: "a", UserID: alice.ID, State: models.RunComplete, CreatedAt: base}
	f.runs.rows["b"] = &models.Run{ID: "b", UserID: alice.ID, State: models.RunFailed, CreatedAt: base.Add(time.Hour)}
	f.runs.rows["c"] = &models.Run{ID: "c", UserID: "u2", State: models.RunComplete, CreatedAt: base}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/backups", nil), f.login(t, "tok", alice)...)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Runs []models.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "b", body.Runs[0].ID)
	assert.Equal(t, "a", body.Runs[1].ID)
}

func TestListBackups_RegistryError(t *testing.T) {
	f := newFixture(t)
	f.runs.err = errors.New("db down")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/backups", nil), f.login(t, "tok", alice)...)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
