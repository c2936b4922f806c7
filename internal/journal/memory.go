package journal

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"platelog/internal/review"
)

// MemoryJournal keeps journal entries in process memory. Used in tests and
// when no data directory is configured.
type MemoryJournal struct {
	mu         sync.Mutex
	operations []*review.OperationEntry
	artifacts  []*review.ArtifactEntry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) BeginOperation(entry *review.OperationEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	clone := *entry
	clone.Status = "running"
	j.operations = append(j.operations, &clone)
	return nil
}

func (j *MemoryJournal) FinishOperation(id, status string, finishedAt time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, op := range j.operations {
		if op.ID == id {
			op.Status = status
			op.FinishedAt = finishedAt
			return nil
		}
	}
	return fmt.Errorf("no operation with id %s", id)
}

func (j *MemoryJournal) RecordArtifact(entry *review.ArtifactEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	clone := *entry
	j.artifacts = append(j.artifacts, &clone)
	return nil
}

func (j *MemoryJournal) RecentOperations(limit int) ([]*review.OperationEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Reverse insertion order first so entries sharing a start time come
	// back most-recently-begun first after the stable sort.
	entries := make([]*review.OperationEntry, len(j.operations))
	for i, op := range j.operations {
		clone := *op
		entries[len(j.operations)-1-i] = &clone
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].StartedAt.After(entries[b].StartedAt)
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Artifacts returns all recorded artifact entries. Test helper.
func (j *MemoryJournal) Artifacts() []*review.ArtifactEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*review.ArtifactEntry, len(j.artifacts))
	copy(out, j.artifacts)
	return out
}

func (j *MemoryJournal) Close() error {
	return nil
}

// Compile-time check that MemoryJournal implements the review.Journal interface
var _ review.Journal = (*MemoryJournal)(nil)
