package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"platelog/internal/config"
	"platelog/internal/review"
)

func newTestApp(t *testing.T) *PlateApp {
	t.Helper()

	base := t.TempDir()
	cfg := config.NewConfig("someone", "food-log", base)
	cfg.Artifacts.Type = "memory"
	cfg.Journal.Type = "memory"

	a, err := NewPlateApp(context.Background(), cfg, "Test")
	if err != nil {
		t.Fatalf("NewPlateApp() error = %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})
	return a
}

func TestNewPlateApp(t *testing.T) {
	t.Run("wires an app from defaults", func(t *testing.T) {
		a := newTestApp(t)
		if a.service == nil || a.journal == nil || a.lock == nil {
			t.Error("app not fully wired")
		}
	})

	t.Run("rejects an unknown imaging profile", func(t *testing.T) {
		cfg := config.NewConfig("someone", "food-log", t.TempDir())
		cfg.Imaging.Profile = "toaster"

		if _, err := NewPlateApp(context.Background(), cfg, "Test"); err == nil {
			t.Error("NewPlateApp() expected error for unknown profile")
		}
	})

	t.Run("rejects an unknown journal type", func(t *testing.T) {
		cfg := config.NewConfig("someone", "food-log", t.TempDir())
		cfg.Journal.Type = "papyrus"

		if _, err := NewPlateApp(context.Background(), cfg, "Test"); err == nil {
			t.Error("NewPlateApp() expected error for unknown journal type")
		}
	})

	t.Run("sqlite journal lives under the data dir", func(t *testing.T) {
		base := t.TempDir()
		cfg := config.NewConfig("someone", "food-log", base)
		cfg.Artifacts.Type = "memory"

		a, err := NewPlateApp(context.Background(), cfg, "Test")
		if err != nil {
			t.Fatalf("NewPlateApp() error = %v", err)
		}
		defer a.Close()

		if _, err := a.History(1); err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(base, "data", "journal.db")); err != nil {
			t.Errorf("journal file missing: %v", err)
		}
	})
}

func TestPlateApp_WithLock(t *testing.T) {
	a := newTestApp(t)

	// A second app on the same lock file stands in for a concurrent CLI
	// invocation.
	other := newTestApp(t)
	other.lock = flock.New(a.lock.Path())

	err := a.withLock(func() error {
		return other.withLock(func() error {
			t.Error("inner fn ran while lock was held")
			return nil
		})
	})
	if !errors.Is(err, review.ErrBusy) {
		t.Errorf("withLock() error = %v, want ErrBusy", err)
	}
}
