package review

import "time"

// OperationEntry is one journaled mutating operation.
type OperationEntry struct {
	ID         string
	Operation  string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
	FinishedAt time.Time // zero until finished
}

// ArtifactEntry records an artifact upload for diagnostics. Uploads are
// journaled even though artifacts are never reclaimed, so orphans left by
// deleted records stay discoverable.
type ArtifactEntry struct {
	ID          string
	Reference   string
	SizeBytes   int64
	ContentType string
	CreatedAt   time.Time
}

// Journal is local bookkeeping of operations and uploads. It is diagnostic
// only; the remote collection stays the sole database of record, and
// credentials are never written to it.
type Journal interface {
	BeginOperation(entry *OperationEntry) error
	FinishOperation(id, status string, finishedAt time.Time) error
	RecordArtifact(entry *ArtifactEntry) error
	RecentOperations(limit int) ([]*OperationEntry, error)
	Close() error
}
