package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"platelog/internal/config"
	"platelog/internal/credential"
	"platelog/internal/imaging"
	"platelog/internal/journal"
	"platelog/internal/model"
	"platelog/internal/review"
	"platelog/internal/store"
)

// PlateApp is the application layer between the CLI and the review Service.
// It constructs all dependencies from config, exposes high-level operations,
// and manages journal and lock lifecycles on Close.
type PlateApp struct {
	cfg     *config.Config
	gh      *store.GitHub
	service *review.Service
	journal review.Journal
	lock    *flock.Flock
	logFile *os.File
	logger  review.Logger
}

// NewPlateApp creates a fully wired PlateApp from the given config.
// operation identifies the CLI command being run (e.g. "AddRecord", "Login").
// The caller must call Close when done.
func NewPlateApp(ctx context.Context, cfg *config.Config, operation string) (*PlateApp, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("command", operation)}

	gh := store.NewGitHub(cfg.Remote, cfg.Timeouts, &http.Client{}, logger)

	artifacts, err := store.NewArtifactStoreFromConfig(ctx, cfg.Artifacts, gh, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating artifact store: %w", err)
	}

	compression, err := imaging.FromConfig(cfg.Imaging)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("resolving imaging profile: %w", err)
	}
	if cfg.Timeouts.DecodeSeconds > 0 {
		compression.DecodeTimeout = time.Duration(cfg.Timeouts.DecodeSeconds) * time.Second
	}
	pipeline := imaging.New(compression, logger)

	unwrapper, err := credential.NewUnwrapperFromConfig(cfg.Credential)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating credential unwrapper: %w", err)
	}

	if cfg.Journal.Type == "sqlite" || cfg.Journal.Type == "" {
		if err := os.MkdirAll(cfg.Journal.DataDir, 0755); err != nil {
			logFile.Close()
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	jnl, err := journal.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating journal: %w", err)
	}

	svc := review.NewService(gh, artifacts, pipeline, unwrapper, jnl, logger, review.RealClock{}, review.UUIDGenerator{})

	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		jnl.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating base directory: %w", err)
	}

	return &PlateApp{
		cfg:     cfg,
		gh:      gh,
		service: svc,
		journal: jnl,
		lock:    flock.New(filepath.Join(cfg.BaseDir, "platelog.lock")),
		logFile: logFile,
		logger:  logger,
	}, nil
}

// withLock runs fn while holding the cross-process lock. The Service's busy
// flag serializes mutations within the process; the file lock extends the
// same guarantee across concurrent CLI invocations. A held lock means
// another mutation is in flight, so fn is skipped with ErrBusy.
func (a *PlateApp) withLock(fn func() error) error {
	locked, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return review.ErrBusy
	}
	defer a.lock.Unlock()
	return fn()
}

// loadCredentialBlob reads the encrypted credential blob, preferring a local
// file and falling back to the remote repository.
func (a *PlateApp) loadCredentialBlob(ctx context.Context) ([]byte, error) {
	if a.cfg.Credential.BlobPath != "" {
		data, err := os.ReadFile(a.cfg.Credential.BlobPath)
		if err != nil {
			return nil, fmt.Errorf("reading credential blob: %w", err)
		}
		return data, nil
	}
	data, err := a.gh.FetchBlob(ctx, a.cfg.Credential.RemotePath)
	if err != nil {
		return nil, fmt.Errorf("fetching credential blob: %w", err)
	}
	return data, nil
}

// Login unwraps the stored credential with the passphrase and verifies it
// against the remote repository. Returns the fetched collection.
func (a *PlateApp) Login(ctx context.Context, passphrase string) (model.Collection, error) {
	blob, err := a.loadCredentialBlob(ctx)
	if err != nil {
		return nil, err
	}

	var col model.Collection
	err = a.withLock(func() error {
		col, err = a.service.Login(ctx, blob, passphrase)
		return err
	})
	if err != nil {
		return nil, err
	}
	return col, nil
}

// List fetches the current collection from the remote repository.
func (a *PlateApp) List(ctx context.Context) (model.Collection, error) {
	return a.service.List(ctx)
}

// AddRecord submits a new record, ingesting and uploading its image first
// when one is given.
func (a *PlateApp) AddRecord(ctx context.Context, input review.NewRecord) (*model.Record, error) {
	var rec *model.Record
	err := a.withLock(func() error {
		var err error
		rec, err = a.service.AddRecord(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteRecord removes the record at the given index.
func (a *PlateApp) DeleteRecord(ctx context.Context, index int) error {
	return a.withLock(func() error {
		return a.service.DeleteRecord(ctx, index)
	})
}

// FetchImage retrieves an uploaded image by its reference.
func (a *PlateApp) FetchImage(ctx context.Context, ref string) ([]byte, error) {
	return a.service.FetchImage(ctx, ref)
}

// History returns the most recent journaled operations, newest first.
func (a *PlateApp) History(limit int) ([]*review.OperationEntry, error) {
	return a.service.History(limit)
}

// Close releases the journal and log file.
func (a *PlateApp) Close() error {
	var firstErr error

	if err := a.journal.Close(); err != nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
