// Package objstore abstracts tenant artifact storage (audit exports and
// similar blobs). Cloud backends plug in behind ArtifactStore; the
// bundled implementations are a local filesystem store and a no-op.
package objstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactStore stores and removes per-tenant artifacts. Keys are scoped
// by tenant slug so RemoveTenant can destroy everything a tenant owns.
type ArtifactStore interface {
	Put(ctx context.Context, slug, name string, data []byte) error
	RemoveTenant(ctx context.Context, slug string) error
}

// FSStore keeps artifacts under root/<slug>/<name> on the local
// filesystem.
type FSStore struct {
	root string
}

// NewFSStore creates an FSStore rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("objstore: creating root: %w", err)
	}

	return &FSStore{root: dir}, nil
}

// Put writes one artifact, creating the tenant directory on first use.
func (s *FSStore) Put(_ context.Context, slug, name string, data []byte) error {
	dir := filepath.Join(s.root, filepath.Clean(slug))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("objstore: creating tenant dir: %w", err)
	}

	path := filepath.Join(dir, filepath.Clean(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("objstore: writing artifact: %w", err)
	}

	return nil
}

// RemoveTenant deletes all artifacts stored for a tenant.
func (s *FSStore) RemoveTenant(_ context.Context, slug string) error {
	if err := os.RemoveAll(filepath.Join(s.root, filepath.Clean(slug))); err != nil {
		return fmt.Errorf("objstore: removing tenant artifacts: %w", err)
	}

	return nil
}

// NoopStore discards writes. Used when no artifact root is configured.
type NoopStore struct{}

// Put discards the artifact.
func (NoopStore) Put(context.Context, string, string, []byte) error { return nil }

// RemoveTenant does nothing.
func (NoopStore) RemoveTenant(context.Context, string) error { return nil }
