package journal

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"platelog/internal/review"
)

// newTestJournal creates a new in-memory journal with schema applied.
func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	j, err := NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}

	t.Cleanup(func() {
		j.Close()
	})

	return j
}

func beginAt(t *testing.T, j review.Journal, op string, startedAt time.Time) string {
	t.Helper()
	id := uuid.New().String()
	err := j.BeginOperation(&review.OperationEntry{
		ID:         id,
		Operation:  op,
		Parameters: `{"restaurant":"Noodle Bar"}`,
		StartedAt:  startedAt,
	})
	if err != nil {
		t.Fatalf("BeginOperation() error = %v", err)
	}
	return id
}

func TestSQLiteJournal_Operations(t *testing.T) {
	t.Run("begin and finish round trip", func(t *testing.T) {
		j := newTestJournal(t)

		started := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		id := beginAt(t, j, "add-record", started)

		ops, err := j.RecentOperations(10)
		if err != nil {
			t.Fatalf("RecentOperations() error = %v", err)
		}
		if len(ops) != 1 {
			t.Fatalf("len(ops) = %d, want 1", len(ops))
		}
		if ops[0].ID != id {
			t.Errorf("ID = %v, want %v", ops[0].ID, id)
		}
		if ops[0].Status != "running" {
			t.Errorf("Status = %q, want running", ops[0].Status)
		}
		if !ops[0].FinishedAt.IsZero() {
			t.Errorf("FinishedAt = %v, want zero", ops[0].FinishedAt)
		}

		finished := started.Add(2 * time.Second)
		if err := j.FinishOperation(id, "success", finished); err != nil {
			t.Fatalf("FinishOperation() error = %v", err)
		}

		ops, err = j.RecentOperations(10)
		if err != nil {
			t.Fatalf("RecentOperations() error = %v", err)
		}
		if ops[0].Status != "success" {
			t.Errorf("Status = %q, want success", ops[0].Status)
		}
		if !ops[0].FinishedAt.Equal(finished) {
			t.Errorf("FinishedAt = %v, want %v", ops[0].FinishedAt, finished)
		}
	})

	t.Run("finish of unknown operation is an error", func(t *testing.T) {
		j := newTestJournal(t)

		if err := j.FinishOperation(uuid.New().String(), "success", time.Now()); err == nil {
			t.Error("FinishOperation() expected error for unknown id")
		}
	})

	t.Run("entries sharing a start time come back most recently begun first", func(t *testing.T) {
		j := newTestJournal(t)

		at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		beginAt(t, j, "login", at)
		beginAt(t, j, "add-record", at)
		beginAt(t, j, "delete-record", at)

		ops, err := j.RecentOperations(10)
		if err != nil {
			t.Fatalf("RecentOperations() error = %v", err)
		}
		if len(ops) != 3 {
			t.Fatalf("len(ops) = %d, want 3", len(ops))
		}
		want := []string{"delete-record", "add-record", "login"}
		for i, op := range ops {
			if op.Operation != want[i] {
				t.Errorf("ops[%d].Operation = %q, want %q", i, op.Operation, want[i])
			}
		}
	})

	t.Run("recent operations are newest first and respect the limit", func(t *testing.T) {
		j := newTestJournal(t)

		base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		beginAt(t, j, "add-record", base)
		beginAt(t, j, "delete-record", base.Add(time.Minute))
		newest := beginAt(t, j, "login", base.Add(2*time.Minute))

		ops, err := j.RecentOperations(2)
		if err != nil {
			t.Fatalf("RecentOperations() error = %v", err)
		}
		if len(ops) != 2 {
			t.Fatalf("len(ops) = %d, want 2", len(ops))
		}
		if ops[0].ID != newest {
			t.Errorf("first ID = %v, want %v", ops[0].ID, newest)
		}
		if ops[0].Operation != "login" || ops[1].Operation != "delete-record" {
			t.Errorf("operations = %q, %q", ops[0].Operation, ops[1].Operation)
		}
	})
}

func TestSQLiteJournal_RecordArtifact(t *testing.T) {
	j := newTestJournal(t)

	entry := &review.ArtifactEntry{
		ID:          uuid.New().String(),
		Reference:   "images/1710417600000_ramen.jpg",
		SizeBytes:   48213,
		ContentType: "image/jpeg",
		CreatedAt:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	if err := j.RecordArtifact(entry); err != nil {
		t.Fatalf("RecordArtifact() error = %v", err)
	}

	// Duplicate IDs are rejected by the primary key.
	if err := j.RecordArtifact(entry); err == nil {
		t.Error("RecordArtifact() expected error for duplicate id")
	}

	var got review.ArtifactEntry
	row := j.db.QueryRow(`SELECT id, reference, size_bytes, content_type, created_at FROM artifacts WHERE id = ?`, entry.ID)
	if err := row.Scan(&got.ID, &got.Reference, &got.SizeBytes, &got.ContentType, &got.CreatedAt); err != nil {
		t.Fatalf("scanning artifact: %v", err)
	}
	if got.Reference != entry.Reference {
		t.Errorf("Reference = %q, want %q", got.Reference, entry.Reference)
	}
	if got.SizeBytes != entry.SizeBytes {
		t.Errorf("SizeBytes = %d, want %d", got.SizeBytes, entry.SizeBytes)
	}
	if got.ContentType != entry.ContentType {
		t.Errorf("ContentType = %q, want %q", got.ContentType, entry.ContentType)
	}
}

func TestMemoryJournal(t *testing.T) {
	j := NewMemoryJournal()
	defer j.Close()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	id := beginAt(t, j, "add-record", base)
	beginAt(t, j, "delete-record", base.Add(time.Minute))

	if err := j.FinishOperation(id, "error", base.Add(time.Second)); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}

	ops, err := j.RecentOperations(10)
	if err != nil {
		t.Fatalf("RecentOperations() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].Operation != "delete-record" {
		t.Errorf("first operation = %q, want delete-record", ops[0].Operation)
	}
	if ops[1].Status != "error" {
		t.Errorf("Status = %q, want error", ops[1].Status)
	}

	if err := j.RecordArtifact(&review.ArtifactEntry{ID: "a1", Reference: "images/1_x.jpg"}); err != nil {
		t.Fatalf("RecordArtifact() error = %v", err)
	}
	if got := len(j.Artifacts()); got != 1 {
		t.Errorf("len(Artifacts()) = %d, want 1", got)
	}
}

func TestMemoryJournal_SameStartTimeOrdering(t *testing.T) {
	j := NewMemoryJournal()
	defer j.Close()

	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	beginAt(t, j, "login", at)
	beginAt(t, j, "add-record", at)
	beginAt(t, j, "delete-record", at)

	ops, err := j.RecentOperations(10)
	if err != nil {
		t.Fatalf("RecentOperations() error = %v", err)
	}
	want := []string{"delete-record", "add-record", "login"}
	if len(ops) != len(want) {
		t.Fatalf("len(ops) = %d, want %d", len(ops), len(want))
	}
	for i, op := range ops {
		if op.Operation != want[i] {
			t.Errorf("ops[%d].Operation = %q, want %q", i, op.Operation, want[i])
		}
	}
}
