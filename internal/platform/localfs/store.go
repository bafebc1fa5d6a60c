// Package localfs implements store.ArtifactStore on the local filesystem.
// Artifact bytes are written under a root directory; the index of live
// artifacts is kept in memory, so a restart starts from an empty store.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/store"
)

// ArtifactStore persists artifacts as files under root.
type ArtifactStore struct {
	root   string
	logger *slog.Logger

	mu    sync.Mutex
	index map[string]domain.ArtifactRef
}

// New initializes a store rooted at root, creating the directory if needed.
func New(root string, logger *slog.Logger) (*ArtifactStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: ensure root: %w", err)
	}
	return &ArtifactStore{
		root:   root,
		logger: logger.With("component", "localfs_store"),
		index:  make(map[string]domain.ArtifactRef),
	}, nil
}

var _ store.ArtifactStore = (*ArtifactStore)(nil)

// Root returns the configured root directory.
func (s *ArtifactStore) Root() string {
	return s.root
}

// Put writes data to a new file named after a fresh artifact ID.
func (s *ArtifactStore) Put(ctx context.Context, name, mimeType string, data []byte) (domain.ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArtifactRef{}, err
	}
	if len(data) == 0 {
		return domain.ArtifactRef{}, store.ErrEmptyArtifact
	}

	id := uuid.NewString() + extensionFor(mimeType)
	path, err := s.pathFor(id)
	if err != nil {
		return domain.ArtifactRef{}, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("localfs: write artifact: %w", err)
	}

	ref := domain.ArtifactRef{ID: id, Name: name, MIMEType: mimeType, Size: len(data)}
	s.mu.Lock()
	s.index[id] = ref
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "artifact written", "artifact_id", id, "bytes", len(data))
	return ref, nil
}

// ReadBytes reads the artifact file.
func (s *ArtifactStore) ReadBytes(ctx context.Context, ref domain.ArtifactRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.known(ref.ID) {
		return nil, fmt.Errorf("%w: %s", store.ErrArtifactNotFound, ref.ID)
	}

	path, err := s.pathFor(ref.ID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrArtifactNotFound, ref.ID)
		}
		return nil, fmt.Errorf("localfs: read artifact: %w", err)
	}
	return data, nil
}

// Release deletes the artifact file.
func (s *ArtifactStore) Release(ctx context.Context, ref domain.ArtifactRef) error {
	s.mu.Lock()
	_, ok := s.index[ref.ID]
	delete(s.index, ref.ID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrArtifactNotFound, ref.ID)
	}

	path, err := s.pathFor(ref.ID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("localfs: remove artifact: %w", err)
	}
	s.logger.DebugContext(ctx, "artifact released", "artifact_id", ref.ID)
	return nil
}

// Len reports how many artifacts are held.
func (s *ArtifactStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *ArtifactStore) known(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

func (s *ArtifactStore) pathFor(id string) (string, error) {
	key, err := sanitizeKey(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: key is required", store.ErrInvalidKey)
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/") {
		return "", fmt.Errorf("%w: %q", store.ErrInvalidKey, key)
	}
	return cleaned, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
