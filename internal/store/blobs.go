package store

import (
	"context"

	"github.com/rmallory/taskdeck/internal/deckerr"
	"github.com/rmallory/taskdeck/internal/entity"
)

// BlobParams are the caller-supplied fields for blob creation.
type BlobParams struct {
	TaskID      string
	ContentHash string
	Filename    string
	MimeType    string
	Size        int64
}

// CreateBlob records an uploaded blob, optionally attached to a task.
func (s *Store) CreateBlob(ctx context.Context, params BlobParams) (*entity.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snap := s.snap()
	var t *entity.Task
	if params.TaskID != "" {
		t = snap.TaskByID(params.TaskID)
		if t == nil {
			return nil, deckerr.Newf(deckerr.CodeInvalidReference,
				"task not found", params.TaskID)
		}
	}

	b := entity.Blob{
		ID:          newID(),
		TaskID:      params.TaskID,
		ContentHash: params.ContentHash,
		Filename:    params.Filename,
		MimeType:    params.MimeType,
		Size:        params.Size,
		CreatedAt:   s.now(),
	}
	snap.Blobs = append(snap.Blobs, b)
	if t != nil {
		t.BlobIDs = append(t.BlobIDs, b.ID)
		t.UpdatedAt = b.CreatedAt
	}

	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBlob returns the blob, or nil if it does not exist.
func (s *Store) GetBlob(ctx context.Context, id string) (*entity.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	for _, b := range s.snap().Blobs {
		if b.ID == id {
			cp := b
			return &cp, nil
		}
	}
	return nil, nil
}

// DeleteBlob removes the blob and its reference from the owning task.
// Returns false if it did not exist.
func (s *Store) DeleteBlob(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	snap := s.snap()
	found := false
	taskID := ""
	blobs := snap.Blobs[:0]
	for _, b := range snap.Blobs {
		if b.ID == id {
			found = true
			taskID = b.TaskID
			continue
		}
		blobs = append(blobs, b)
	}
	if !found {
		return false, nil
	}
	snap.Blobs = blobs

	if taskID != "" {
		if t := snap.TaskByID(taskID); t != nil {
			t.BlobIDs = withoutIDs(t.BlobIDs, map[string]struct{}{id: {}})
			t.UpdatedAt = s.now()
		}
	}

	if err := s.adapter.Write(ctx); err != nil {
		return false, err
	}
	return true, nil
}
