// Package backups runs the photo backup pipeline: the per-user status
// document, run artifacts, the orchestrator state machine and the worker
// pool executing runs in the background.
package backups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/liveon/internal/server/blob"
	"github.com/dmitrijs2005/liveon/internal/server/models"
)

const (
	contentTypeJSON = "application/json"

	// MustNotExist as the etag argument of PutStatus makes the write
	// succeed only if no status document exists yet.
	MustNotExist = "*"

	PhotosFile       = "photos.json"
	PostsFile        = "posts.json"
	SummaryFile      = "summary.json"
	EntitlementsFile = "entitlements.json"
)

// ArtifactNames are the files a completed run leaves behind, in write order.
var ArtifactNames = []string{PhotosFile, PostsFile, SummaryFile}

// ErrCorruptStatus wraps a status document that exists but cannot be parsed.
var ErrCorruptStatus = errors.New("corrupt status document")

// Store lays the status document and artifacts out over a blob.Store.
type Store struct {
	blobs blob.Store
}

func NewStore(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

// Prefix is the key prefix owning every object of userID.
func Prefix(userID string) string {
	return userID + "/"
}

func StatusKey(userID string) string {
	return Prefix(userID) + "status.json"
}

func RunPrefix(userID, runID string) string {
	return fmt.Sprintf("%sbackup_%s/", Prefix(userID), runID)
}

func ArtifactKey(userID, runID, name string) string {
	return RunPrefix(userID, runID) + name
}

// ArtifactKeys returns the keys of the standard artifacts of a run.
func ArtifactKeys(userID, runID string) []string {
	keys := make([]string, 0, len(ArtifactNames))
	for _, n := range ArtifactNames {
		keys = append(keys, ArtifactKey(userID, runID, n))
	}
	return keys
}

// PutStatus overwrites the status document. etag "" writes
// unconditionally, MustNotExist requires the document to be absent and any
// other value must match the stored ETag. A failed condition is reported
// as blob.ErrPreconditionFailed.
func (s *Store) PutStatus(ctx context.Context, userID string, st *models.Status, etag string) (string, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("marshal status: %w", err)
	}

	opts := blob.PutOptions{ContentType: contentTypeJSON}
	switch etag {
	case "":
	case MustNotExist:
		opts.IfNoneMatch = true
	default:
		opts.IfMatch = etag
	}

	newETag, err := s.blobs.Put(ctx, StatusKey(userID), data, opts)
	if err != nil {
		return "", fmt.Errorf("put status: %w", err)
	}

	return newETag, nil
}

// GetStatus returns the status document and its ETag, or (nil, "", nil)
// when there is none. A document that cannot be parsed is returned as
// ErrCorruptStatus together with its ETag so it can be replaced by CAS.
func (s *Store) GetStatus(ctx context.Context, userID string) (*models.Status, string, error) {
	data, etag, err := s.blobs.Get(ctx, StatusKey(userID))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("get status: %w", err)
	}

	var st models.Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, etag, fmt.Errorf("%w: %v", ErrCorruptStatus, err)
	}

	return &st, etag, nil
}

// PutArtifact writes v as indented JSON under the run prefix.
func (s *Store) PutArtifact(ctx context.Context, userID, runID, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	if _, err := s.blobs.Put(ctx, ArtifactKey(userID, runID, name), data, blob.PutOptions{ContentType: contentTypeJSON}); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}

	return nil
}

// Blobs exposes the underlying store for presigning downloads.
func (s *Store) Blobs() blob.Store {
	return s.blobs
}
