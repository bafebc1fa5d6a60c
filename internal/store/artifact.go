package store

import (
	"context"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
)

// ArtifactStore holds artifact bytes behind opaque references.
type ArtifactStore interface {
	// Put stores data and returns a new reference to it.
	Put(ctx context.Context, name, mimeType string, data []byte) (domain.ArtifactRef, error)

	// ReadBytes returns the bytes behind ref.
	ReadBytes(ctx context.Context, ref domain.ArtifactRef) ([]byte, error)

	// Release frees the artifact. It must be called exactly once per artifact.
	Release(ctx context.Context, ref domain.ArtifactRef) error
}

// ArtifactLister is implemented by stores that can report what they hold.
type ArtifactLister interface {
	Len() int
}
