package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"platelog/internal/model"
	"platelog/internal/review"
)

// Memory is an in-memory store implementing both store interfaces. It
// mimics the provider's conditional-write behavior, making it useful for
// testing the read-modify-write cycle without a network.
// This implementation is safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	document  []byte
	sha       string
	exists    bool
	artifacts map[string][]byte

	// SaveHook, when set, runs between the version-token read and the
	// conditional write. Tests use it to interleave a concurrent writer.
	SaveHook func()

	// FailWith, when set, fails every call with this error.
	FailWith error
}

var (
	_ review.CollectionStore = (*Memory)(nil)
	_ review.ArtifactStore   = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{artifacts: make(map[string][]byte)}
}

func contentSHA(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:8])
}

// Fetch returns the stored collection, or an empty collection when no
// document has been written yet.
func (m *Memory) Fetch(_ context.Context, _ review.Credential) (model.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if !m.exists {
		return model.Collection{}, nil
	}
	return model.UnmarshalCollection(m.document)
}

// Save performs the same read-token-then-conditional-write sequence as the
// real provider. A SaveHook firing between the two steps can make the
// token stale, producing ErrVersionConflict.
func (m *Memory) Save(_ context.Context, col model.Collection, _ review.Credential) (string, error) {
	data, err := col.Marshal()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.FailWith != nil {
		m.mu.Unlock()
		return "", m.FailWith
	}
	token := m.sha
	hook := m.SaveHook
	m.mu.Unlock()

	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sha != token {
		return "", fmt.Errorf("writing collection: %w", review.ErrVersionConflict)
	}
	m.document = data
	m.sha = contentSHA(data)
	m.exists = true
	return m.sha, nil
}

// SaveDirect installs a collection as if another client had written it,
// advancing the version token.
func (m *Memory) SaveDirect(col model.Collection) error {
	data, err := col.Marshal()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.document = data
	m.sha = contentSHA(data)
	m.exists = true
	return nil
}

// Version returns the current version token, empty when no document exists.
func (m *Memory) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sha
}

// Put stores an artifact under a timestamped path. Existing paths are
// never overwritten.
func (m *Memory) Put(_ context.Context, art *review.Artifact, when time.Time, _ review.Credential) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}

	ref := fmt.Sprintf("images/%d_%s", when.UnixMilli(), SanitizeName(art.Name))
	if _, ok := m.artifacts[ref]; ok {
		return "", fmt.Errorf("artifact already exists: %s", ref)
	}
	m.artifacts[ref] = append([]byte(nil), art.Bytes...)
	return ref, nil
}

// Get retrieves an artifact by reference.
func (m *Memory) Get(_ context.Context, ref string, _ review.Credential) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	data, ok := m.artifacts[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, review.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// ArtifactCount reports how many artifacts have been stored.
func (m *Memory) ArtifactCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.artifacts)
}
