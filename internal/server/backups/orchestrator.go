package backups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/logging"
	"github.com/dmitrijs2005/liveon/internal/server/blob"
	"github.com/dmitrijs2005/liveon/internal/server/models"
	"github.com/google/uuid"
)

const (
	UploadedPhotosPath = "photos/uploaded?fields=images,created_time,name,place,id"
	AllPhotosPath      = "photos?fields=images,created_time,name,place,id"
)

// Fetcher walks a paginated provider collection.
type Fetcher interface {
	FetchAllPages(ctx context.Context, resourcePath, credential string) []models.Photo
}

// RunRegistry keeps the durable history of runs.
type RunRegistry interface {
	Create(ctx context.Context, run *models.Run) error
	SetState(ctx context.Context, runID string, state models.RunState) error
	Finish(ctx context.Context, runID string, state models.RunState, totalPhotos, totalPosts int, errMsg string) error
}

// Job is an acquired lease plus what the run needs to execute.
type Job struct {
	UserID     string
	RunID      string
	Credential string

	// etag of the last status document this job wrote.
	etag string
	// status is the last document this job wrote, once Run has started.
	status *models.Status
}

// Orchestrator drives one run end to end. A user holds at most one lease:
// acquisition and every later status write are compare-and-swap on the
// status document ETag.
type Orchestrator struct {
	store      *Store
	fetcher    Fetcher
	runs       RunRegistry
	log        logging.Logger
	staleAfter time.Duration

	now   func() time.Time
	newID func() string
}

func NewOrchestrator(store *Store, fetcher Fetcher, runs RunRegistry, staleAfter time.Duration, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		fetcher:    fetcher,
		runs:       runs,
		log:        log,
		staleAfter: staleAfter,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Acquire takes the lease for userID. It returns common.ErrBackupRunning
// when a fresh run holds it or when another request won the race.
func (o *Orchestrator) Acquire(ctx context.Context, userID string) (*Job, error) {
	cur, etag, err := o.store.GetStatus(ctx, userID)
	if err != nil {
		o.log.Warn(ctx, "status read failed, treating as absent", "user_id", userID, "error", err)
		cur = nil
	}

	now := o.now()
	if cur.IsFresh(now, o.staleAfter) {
		return nil, common.ErrBackupRunning
	}

	cond := etag
	if cond == "" {
		cond = MustNotExist
	}

	runID := o.newID()
	st := &models.Status{
		Running:     true,
		Progress:    0,
		Step:        models.StepInitializing,
		LastUpdated: now.UnixMilli(),
		RunID:       runID,
	}

	newETag, err := o.store.PutStatus(ctx, userID, st, cond)
	if errors.Is(err, blob.ErrPreconditionFailed) {
		return nil, common.ErrBackupRunning
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}

	if cur != nil && cur.Running && cur.RunID != "" {
		o.log.Warn(ctx, "took over stale run", "user_id", userID, "stale_run_id", cur.RunID, "run_id", runID)
		if err := o.runs.Finish(ctx, cur.RunID, models.RunAbandoned, 0, 0, "superseded by "+runID); err != nil {
			o.log.Warn(ctx, "run registry update failed", "run_id", cur.RunID, "error", err)
		}
	}

	if err := o.runs.Create(ctx, &models.Run{
		ID:        runID,
		UserID:    userID,
		State:     models.RunQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		o.log.Warn(ctx, "run registry insert failed", "run_id", runID, "error", err)
	}

	return &Job{UserID: userID, RunID: runID, etag: newETag}, nil
}

// run is the mutable state of one executing job.
type run struct {
	o      *Orchestrator
	job    *Job
	status *models.Status
	log    logging.Logger
}

// Run executes the pipeline for an acquired job. Failures are recorded in
// the status document and returned.
func (o *Orchestrator) Run(ctx context.Context, job *Job) error {
	job.status = &models.Status{
		Running:  true,
		Progress: 0,
		Step:     models.StepInitializing,
		RunID:    job.RunID,
	}
	r := &run{
		o:      o,
		job:    job,
		status: job.status,
		log:    o.log.With("user_id", job.UserID, "run_id", job.RunID),
	}

	if err := o.runs.SetState(ctx, job.RunID, models.RunRunning); err != nil {
		r.log.Warn(ctx, "run registry update failed", "error", err)
	}

	summary, err := r.execute(ctx)
	if errors.Is(err, common.ErrLeaseLost) {
		r.log.Warn(ctx, "backup aborted", "error", err)
		o.finish(ctx, r.log, job.RunID, models.RunAbandoned, 0, 0, err.Error())
		return err
	}
	if err != nil {
		r.log.Error(ctx, "backup failed", "error", err)
		r.fail(ctx, err)
		return err
	}

	if err := r.complete(ctx, summary); err != nil {
		r.log.Warn(ctx, "backup aborted", "error", err)
		return err
	}
	r.log.Info(ctx, "backup complete", "photos", summary.TotalPhotos, "posts", summary.TotalPosts)

	return nil
}

// Abort records a job that will not run to completion: one that never
// left the queue, or one whose worker died mid-run. A run that had
// started keeps the progress and step it last reported.
func (o *Orchestrator) Abort(ctx context.Context, job *Job, cause error) {
	st := models.Status{
		Step:  models.StepInitializing,
		RunID: job.RunID,
	}
	if job.status != nil {
		if !job.status.Running {
			o.log.Warn(ctx, "abort after terminal status ignored", "run_id", job.RunID, "error", cause)
			return
		}
		st = *job.status
	}

	r := &run{
		o:      o,
		job:    job,
		status: &st,
		log:    o.log.With("user_id", job.UserID, "run_id", job.RunID),
	}
	r.fail(ctx, cause)
}

func (o *Orchestrator) finish(ctx context.Context, log logging.Logger, runID string, state models.RunState, photos, posts int, errMsg string) {
	if err := o.runs.Finish(context.WithoutCancel(ctx), runID, state, photos, posts, errMsg); err != nil {
		log.Warn(ctx, "run registry update failed", "error", err)
	}
}

func (r *run) execute(ctx context.Context) (*models.Summary, error) {
	u, id := r.job.UserID, r.job.RunID

	if err := r.advance(ctx, 10, models.StepFetching); err != nil {
		return nil, err
	}

	photos := r.o.fetcher.FetchAllPages(ctx, UploadedPhotosPath, r.job.Credential)
	if len(photos) == 0 {
		r.log.Info(ctx, "no uploaded photos, trying all photos")
		photos = r.o.fetcher.FetchAllPages(ctx, AllPhotosPath, r.job.Credential)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.o.store.PutArtifact(ctx, u, id, PhotosFile, photos); err != nil {
		return nil, err
	}

	if err := r.advance(ctx, 40, models.StepProcessing); err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(photos))
	for _, p := range photos {
		posts = append(posts, models.PostFromPhoto(p))
	}
	if err := r.o.store.PutArtifact(ctx, u, id, PostsFile, posts); err != nil {
		return nil, err
	}

	if err := r.advance(ctx, 80, models.StepFinalizing); err != nil {
		return nil, err
	}

	summary := &models.Summary{
		Timestamp:   r.o.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		TotalPhotos: len(photos),
		TotalPosts:  len(posts),
		RunID:       id,
	}
	if err := r.o.store.PutArtifact(ctx, u, id, SummaryFile, summary); err != nil {
		return nil, err
	}

	return summary, nil
}

// advance writes a progress update. Losing the CAS means another run took
// the lease, which aborts this one; any other write error is logged.
func (r *run) advance(ctx context.Context, progress int, step string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.status.Progress = progress
	r.status.Step = step

	err := r.write(ctx)
	if errors.Is(err, blob.ErrPreconditionFailed) {
		return fmt.Errorf("%w: %v", common.ErrLeaseLost, err)
	}
	if err != nil {
		r.log.Warn(ctx, "status update failed", "step", step, "error", err)
	}

	// keeps the registry row fresh for housekeeping
	if err := r.o.runs.SetState(ctx, r.job.RunID, models.RunRunning); err != nil {
		r.log.Warn(ctx, "run registry update failed", "error", err)
	}

	return nil
}

// complete publishes the result. The registry follows the status
// document: if another run took the lease first this one is recorded as
// abandoned and common.ErrLeaseLost is returned.
func (r *run) complete(ctx context.Context, summary *models.Summary) error {
	r.status.Running = false
	r.status.Progress = 100
	r.status.Step = models.StepComplete
	r.status.Result = summary

	err := r.write(context.WithoutCancel(ctx))
	if errors.Is(err, blob.ErrPreconditionFailed) {
		err = fmt.Errorf("%w: %v", common.ErrLeaseLost, err)
		r.o.finish(ctx, r.log, r.job.RunID, models.RunAbandoned, 0, 0, err.Error())
		return err
	}
	if err != nil {
		r.log.Warn(ctx, "final status update failed", "error", err)
	}

	r.o.finish(ctx, r.log, r.job.RunID, models.RunComplete, summary.TotalPhotos, summary.TotalPosts, "")
	return nil
}

func (r *run) fail(ctx context.Context, cause error) {
	r.status.Running = false
	r.status.Error = cause.Error()

	err := r.write(context.WithoutCancel(ctx))
	if errors.Is(err, blob.ErrPreconditionFailed) {
		r.log.Warn(ctx, "lease lost before failure was recorded", "error", err)
		r.o.finish(ctx, r.log, r.job.RunID, models.RunAbandoned, 0, 0, cause.Error())
		return
	}
	if err != nil {
		r.log.Warn(ctx, "failure status update failed", "error", err)
	}

	r.o.finish(ctx, r.log, r.job.RunID, models.RunFailed, 0, 0, cause.Error())
}

func (r *run) write(ctx context.Context) error {
	r.status.LastUpdated = r.o.now().UnixMilli()

	etag, err := r.o.store.PutStatus(ctx, r.job.UserID, r.status, r.job.etag)
	if err != nil {
		return err
	}
	r.job.etag = etag

	return nil
}
