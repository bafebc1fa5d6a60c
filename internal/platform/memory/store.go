// Package memory provides an in-process store.ArtifactStore. Artifacts live
// until released; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/store"
)

type entry struct {
	ref  domain.ArtifactRef
	data []byte
}

// ArtifactStore keeps artifact bytes in a map guarded by a mutex.
type ArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[string]entry
}

// NewArtifactStore creates an empty store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{artifacts: make(map[string]entry)}
}

var _ store.ArtifactStore = (*ArtifactStore)(nil)

// Put copies data into the store.
func (s *ArtifactStore) Put(ctx context.Context, name, mimeType string, data []byte) (domain.ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArtifactRef{}, err
	}
	if len(data) == 0 {
		return domain.ArtifactRef{}, store.ErrEmptyArtifact
	}

	ref := domain.ArtifactRef{
		ID:       uuid.NewString(),
		Name:     name,
		MIMEType: mimeType,
		Size:     len(data),
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.artifacts[ref.ID] = entry{ref: ref, data: buf}
	s.mu.Unlock()

	return ref, nil
}

// ReadBytes returns a copy of the stored bytes.
func (s *ArtifactStore) ReadBytes(ctx context.Context, ref domain.ArtifactRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	e, ok := s.artifacts[ref.ID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrArtifactNotFound, ref.ID)
	}

	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

// Release drops the artifact.
func (s *ArtifactStore) Release(_ context.Context, ref domain.ArtifactRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.artifacts[ref.ID]; !ok {
		return fmt.Errorf("%w: %s", store.ErrArtifactNotFound, ref.ID)
	}
	delete(s.artifacts, ref.ID)
	return nil
}

// Len reports how many artifacts are held.
func (s *ArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}
