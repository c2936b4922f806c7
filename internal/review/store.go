package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"platelog/internal/model"
)

// ErrVersionConflict reports that a conditional collection write was
// rejected because the version token read before the write is no longer
// current. The caller must re-fetch and retry; conflicts are never merged.
var ErrVersionConflict = errors.New("collection was modified remotely")

// ErrNotFound reports a missing remote object. Fetching a missing
// collection is not an error (it yields an empty collection); fetching a
// missing artifact surfaces this so rendering can degrade, not crash.
var ErrNotFound = errors.New("remote object not found")

// StatusError carries the HTTP status of a failed remote call for
// diagnostics. It is surfaced generically to the user.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: remote store returned status %d", e.Op, e.Status)
}

// Artifact is an upload-ready binary object produced by the image pipeline.
type Artifact struct {
	Name        string // sanitized original filename
	ContentType string
	Bytes       []byte
	Preview     []byte // best-effort small raster, may be nil
}

// CollectionStore reads and conditionally writes the collection document.
type CollectionStore interface {
	// Fetch retrieves the current collection. A missing remote document
	// resolves to an empty collection, never an error.
	Fetch(ctx context.Context, cred Credential) (model.Collection, error)

	// Save writes the collection under optimistic concurrency control:
	// it reads the current version token immediately before issuing a
	// single conditional write. Absence of a token is tolerated (the
	// document is created). A stale token fails with ErrVersionConflict.
	// Returns the version token of the written document.
	Save(ctx context.Context, col model.Collection, cred Credential) (string, error)
}

// ArtifactStore uploads and retrieves media artifacts.
type ArtifactStore interface {
	// Put writes the artifact at a freshly derived, collision-resistant
	// path built from when and the sanitized artifact name, and returns
	// the reference. It never overwrites an existing object.
	Put(ctx context.Context, art *Artifact, when time.Time, cred Credential) (string, error)

	// Get retrieves an artifact's bytes by reference. A missing object or
	// rejected credential fails with an error wrapping ErrNotFound, which
	// callers render as "image unavailable".
	Get(ctx context.Context, ref string, cred Credential) ([]byte, error)
}
