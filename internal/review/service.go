package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"platelog/internal/model"
)

// ErrBusy reports that a mutating operation is already in flight. A second
// invocation is a no-op, not queued, so rapid repeated triggers cannot
// issue duplicate remote writes.
var ErrBusy = errors.New("another operation is in progress")

// ErrNotLoggedIn reports that no valid credential is held in the session.
var ErrNotLoggedIn = errors.New("not logged in")

// Service is the orchestration layer that owns session state (credential,
// last-seen collection, busy flag) and coordinates the store, pipeline and
// journal to perform high-level operations needed by the CLI.
//
// At most one mutating operation is in flight at a time; the busy flag is
// the only concurrency control the session state needs.
type Service struct {
	collections CollectionStore
	artifacts   ArtifactStore
	pipeline    ImagePipeline
	unwrapper   Unwrapper
	journal     Journal
	logger      Logger
	clock       Clock
	idgen       IDGenerator

	busy atomic.Bool

	mu         sync.Mutex
	cred       Credential
	collection model.Collection
}

// NewService creates a Service with the provided dependencies.
func NewService(collections CollectionStore, artifacts ArtifactStore, pipeline ImagePipeline, unwrapper Unwrapper, journal Journal, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		collections: collections,
		artifacts:   artifacts,
		pipeline:    pipeline,
		unwrapper:   unwrapper,
		journal:     journal,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
	}
}

// NewRecord is the user-supplied input for a record submission. Price is the
// raw decimal string from the form; ratings are 1-10.
type NewRecord struct {
	Restaurant string
	FoodItem   string
	Price      string
	Taste      int
	Texture    int
	Size       int
	Value      int
	EL         bool
	AG         bool
	ImagePath  string // optional local image file
}

// acquire claims the busy flag. Callers must release on every exit path.
func (s *Service) acquire() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (s *Service) release() { s.busy.Store(false) }

// journaled runs fn as a journaled operation, recording start, finish and
// final status. Journal write failures degrade to a log line; bookkeeping
// must never wedge an otherwise healthy operation.
func (s *Service) journaled(operation, parameters string, fn func(opID string) error) error {
	id := s.idgen.New()
	entry := &OperationEntry{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.clock.Now(),
	}
	if err := s.journal.BeginOperation(entry); err != nil {
		s.logger.Warn("journaling operation failed", "operation", operation, "error", err)
	}

	err := fn(id)

	status := "success"
	if err != nil {
		status = "error"
	}
	if jerr := s.journal.FinishOperation(id, status, s.clock.Now()); jerr != nil {
		s.logger.Warn("finishing journal entry failed", "operation", operation, "error", jerr)
	}
	return err
}

// Login unwraps the credential blob with the passphrase, verifies the
// result against the remote store by fetching the collection, and installs
// both in the session. Every unwrap failure is ErrInvalidPassphrase.
func (s *Service) Login(ctx context.Context, blob []byte, passphrase string) (model.Collection, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	var col model.Collection
	err := s.journaled("Login", "", func(string) error {
		cred, err := s.unwrapper.Unwrap(blob, passphrase)
		if err != nil {
			return err
		}
		if !cred.Valid() {
			// Shape validation is the unwrapper's job, but a credential
			// failing it must never reach the network.
			return ErrInvalidPassphrase
		}

		col, err = s.collections.Fetch(ctx, cred)
		if err != nil {
			return fmt.Errorf("fetching collection: %w", err)
		}

		s.mu.Lock()
		s.cred = cred
		s.collection = col
		s.mu.Unlock()

		s.logger.Info("logged in", "records", len(col))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return col, nil
}

// LoggedIn reports whether the session holds a valid credential.
func (s *Service) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred.Valid()
}

// Collection returns the last collection observed by the session.
func (s *Service) Collection() model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.Collection, len(s.collection))
	copy(out, s.collection)
	return out
}

// List fetches the current collection. Reads work without a credential when
// the remote repository is publicly readable.
func (s *Service) List(ctx context.Context) (model.Collection, error) {
	s.mu.Lock()
	cred := s.cred
	s.mu.Unlock()

	col, err := s.collections.Fetch(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("fetching collection: %w", err)
	}

	s.mu.Lock()
	s.collection = col
	s.mu.Unlock()
	return col, nil
}

// AddRecord performs a full submission: optional image ingestion and
// upload, then a fresh read-modify-write of the collection. A media failure
// aborts the submission before any record is appended, so a record is never
// saved with a half-completed image reference.
func (s *Service) AddRecord(ctx context.Context, input NewRecord) (*model.Record, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	s.mu.Lock()
	cred := s.cred
	s.mu.Unlock()
	if !cred.Valid() {
		return nil, ErrNotLoggedIn
	}

	price, err := model.ParsePrice(input.Price)
	if err != nil {
		return nil, err
	}

	rec := model.Record{
		Restaurant: input.Restaurant,
		FoodItem:   input.FoodItem,
		Price:      price,
		Ratings: model.Ratings{
			Taste:   input.Taste,
			Texture: input.Texture,
			Size:    input.Size,
			Value:   input.Value,
		},
		Flags: model.Flags{EL: input.EL, AG: input.AG},
		// The timestamp marks record creation, not save time.
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	err = s.journaled("AddRecord", input.Restaurant+"/"+input.FoodItem, func(opID string) error {
		if input.ImagePath != "" {
			ref, err := s.ingestImage(ctx, input.ImagePath)
			if err != nil {
				return err
			}
			rec.Image = ref
		}

		// Fresh read immediately before the write keeps the race window
		// as small as the provider allows.
		col, err := s.collections.Fetch(ctx, cred)
		if err != nil {
			return fmt.Errorf("fetching collection: %w", err)
		}

		updated := col.Append(rec)
		if _, err := s.collections.Save(ctx, updated, cred); err != nil {
			return fmt.Errorf("saving collection: %w", err)
		}

		s.mu.Lock()
		s.collection = updated
		s.mu.Unlock()

		s.logger.Info("record added", "restaurant", rec.Restaurant, "image", rec.Image)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ingestImage runs the pipeline on the local file and uploads the artifact.
func (s *Service) ingestImage(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	cred := s.cred
	s.mu.Unlock()

	art, err := s.pipeline.Process(ctx, path)
	if err != nil {
		return "", fmt.Errorf("preparing image: %w", err)
	}

	ref, err := s.artifacts.Put(ctx, art, s.clock.Now(), cred)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}

	if jerr := s.journal.RecordArtifact(&ArtifactEntry{
		ID:          s.idgen.New(),
		Reference:   ref,
		SizeBytes:   int64(len(art.Bytes)),
		ContentType: art.ContentType,
		CreatedAt:   s.clock.Now(),
	}); jerr != nil {
		s.logger.Warn("journaling artifact failed", "ref", ref, "error", jerr)
	}

	s.logger.Info("image uploaded", "ref", ref, "bytes", len(art.Bytes))
	return ref, nil
}

// DeleteRecord removes the record at index i via a fresh read-modify-write.
// The record's artifact, if any, is intentionally left in place.
func (s *Service) DeleteRecord(ctx context.Context, i int) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	cred := s.cred
	s.mu.Unlock()
	if !cred.Valid() {
		return ErrNotLoggedIn
	}

	return s.journaled("DeleteRecord", fmt.Sprintf("index=%d", i), func(string) error {
		col, err := s.collections.Fetch(ctx, cred)
		if err != nil {
			return fmt.Errorf("fetching collection: %w", err)
		}

		updated, err := col.RemoveAt(i)
		if err != nil {
			return err
		}

		if _, err := s.collections.Save(ctx, updated, cred); err != nil {
			return fmt.Errorf("saving collection: %w", err)
		}

		s.mu.Lock()
		s.collection = updated
		s.mu.Unlock()

		s.logger.Info("record deleted", "index", i)
		return nil
	})
}

// FetchImage retrieves an artifact's bytes for local rendering. Callers
// treat an error wrapping ErrNotFound as "image unavailable".
func (s *Service) FetchImage(ctx context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	cred := s.cred
	s.mu.Unlock()

	data, err := s.artifacts.Get(ctx, ref, cred)
	if err != nil {
		return nil, fmt.Errorf("fetching image %s: %w", ref, err)
	}
	return data, nil
}

// History returns the most recent journaled operations, newest first.
func (s *Service) History(limit int) ([]*OperationEntry, error) {
	return s.journal.RecentOperations(limit)
}
