package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"platelog/internal/review"
)

// Filesystem is an artifact store backed by a local directory, useful as a
// mirror of the media tree when working offline or in tests against real
// files. The collection document itself always lives on the remote
// repository.
type Filesystem struct {
	root string
}

var _ review.ArtifactStore = (*Filesystem)(nil)

// NewFilesystem creates a filesystem artifact store rooted at the given path.
func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Filesystem{root: root}, nil
}

// Put writes the artifact at a timestamped path under images/. The file is
// created exclusively so an existing artifact is never overwritten.
func (f *Filesystem) Put(_ context.Context, art *review.Artifact, when time.Time, _ review.Credential) (string, error) {
	ref := fmt.Sprintf("images/%d_%s", when.UnixMilli(), SanitizeName(art.Name))
	dest := filepath.Join(f.root, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("creating artifact file: %w", err)
	}

	if _, err := out.Write(art.Bytes); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing artifact: %w", err)
	}
	return ref, nil
}

// Get reads an artifact back by reference.
func (f *Filesystem) Get(_ context.Context, ref string, _ review.Credential) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(ref)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ref, review.ErrNotFound)
		}
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return data, nil
}
