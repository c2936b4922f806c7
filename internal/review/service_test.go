package review_test

import (
	"context"
	"errors"
	"testing"

	"platelog/internal/model"
	"platelog/internal/review"
	"platelog/internal/testutil"
)

func login(t *testing.T, h *testutil.ServiceHarness) {
	t.Helper()
	if _, err := h.Service.Login(context.Background(), []byte("blob"), "open sesame"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func sampleInput() review.NewRecord {
	return review.NewRecord{
		Restaurant: "Noodle Bar",
		FoodItem:   "Tonkotsu Ramen",
		Price:      "12.50",
		Taste:      8,
		Texture:    7,
		Size:       6,
		Value:      9,
		EL:         true,
	}
}

func TestService_Login(t *testing.T) {
	t.Run("installs credential and collection", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		seed := model.Collection{{Restaurant: "Taqueria", FoodItem: "Al Pastor", Price: 450,
			Ratings: model.Ratings{Taste: 9, Texture: 8, Size: 7, Value: 9}, Timestamp: "2026-01-02T10:00:00Z"}}
		if err := h.Store.SaveDirect(seed); err != nil {
			t.Fatalf("SaveDirect() error = %v", err)
		}

		col, err := h.Service.Login(context.Background(), []byte("blob"), "open sesame")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if len(col) != 1 {
			t.Fatalf("len(col) = %d, want 1", len(col))
		}
		if !h.Service.LoggedIn() {
			t.Error("LoggedIn() = false after successful login")
		}
	})

	t.Run("wrong passphrase yields the single generic error", func(t *testing.T) {
		h := testutil.NewServiceHarness()

		_, err := h.Service.Login(context.Background(), []byte("blob"), "wrong")
		if !errors.Is(err, review.ErrInvalidPassphrase) {
			t.Errorf("Login() error = %v, want ErrInvalidPassphrase", err)
		}
		if h.Service.LoggedIn() {
			t.Error("LoggedIn() = true after failed login")
		}
	})

	t.Run("fetch failure leaves the session logged out", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		h.Store.FailWith = errors.New("network down")

		if _, err := h.Service.Login(context.Background(), []byte("blob"), "open sesame"); err == nil {
			t.Fatal("Login() expected error")
		}
		if h.Service.LoggedIn() {
			t.Error("LoggedIn() = true after failed login")
		}
	})
}

func TestService_AddRecord(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		h := testutil.NewServiceHarness()

		_, err := h.Service.AddRecord(context.Background(), sampleInput())
		if !errors.Is(err, review.ErrNotLoggedIn) {
			t.Errorf("AddRecord() error = %v, want ErrNotLoggedIn", err)
		}
	})

	t.Run("appends the record with a creation timestamp", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		rec, err := h.Service.AddRecord(context.Background(), sampleInput())
		if err != nil {
			t.Fatalf("AddRecord() error = %v", err)
		}
		if rec.Timestamp != "2026-03-14T12:00:00Z" {
			t.Errorf("Timestamp = %q, want 2026-03-14T12:00:00Z", rec.Timestamp)
		}
		if rec.Price != 1250 {
			t.Errorf("Price = %d, want 1250", rec.Price)
		}
		if rec.Image != "" {
			t.Errorf("Image = %q, want empty without an image path", rec.Image)
		}

		col, err := h.Store.Fetch(context.Background(), "")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(col) != 1 || col[0].Restaurant != "Noodle Bar" {
			t.Errorf("stored collection = %+v", col)
		}
	})

	t.Run("full payload survives a save and re-fetch", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		input := review.NewRecord{
			Restaurant: "Cafe A",
			FoodItem:   "Soup",
			Price:      "4.50",
			Taste:      8,
			Texture:    7,
			Size:       5,
			Value:      6,
			EL:         true,
		}
		if _, err := h.Service.AddRecord(context.Background(), input); err != nil {
			t.Fatalf("AddRecord() error = %v", err)
		}

		col, err := h.Service.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(col) != 1 {
			t.Fatalf("len(col) = %d, want 1", len(col))
		}
		got := col[0]
		if got.Restaurant != "Cafe A" || got.FoodItem != "Soup" {
			t.Errorf("record = %+v", got)
		}
		if got.Price.String() != "4.50" {
			t.Errorf("Price = %q, want 4.50", got.Price.String())
		}
		if got.Ratings != (model.Ratings{Taste: 8, Texture: 7, Size: 5, Value: 6}) {
			t.Errorf("Ratings = %+v", got.Ratings)
		}
		if !got.Flags.EL || got.Flags.AG {
			t.Errorf("Flags = %+v", got.Flags)
		}
		if got.Timestamp == "" || got.Image != "" {
			t.Errorf("Timestamp = %q, Image = %q", got.Timestamp, got.Image)
		}
	})

	t.Run("ingests an image before saving", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		input := sampleInput()
		input.ImagePath = "/photos/ramen.jpg"

		rec, err := h.Service.AddRecord(context.Background(), input)
		if err != nil {
			t.Fatalf("AddRecord() error = %v", err)
		}
		want := "images/1773489600000_photo.jpg"
		if rec.Image != want {
			t.Errorf("Image = %q, want %q", rec.Image, want)
		}
		if got := h.Pipeline.Processed(); len(got) != 1 || got[0] != "/photos/ramen.jpg" {
			t.Errorf("Processed() = %v", got)
		}
		if h.Store.ArtifactCount() != 1 {
			t.Errorf("ArtifactCount() = %d, want 1", h.Store.ArtifactCount())
		}
		if got := len(h.Journal.Artifacts()); got != 1 {
			t.Errorf("journaled artifacts = %d, want 1", got)
		}
	})

	t.Run("a media failure aborts before any record is written", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)
		h.Pipeline.FailWith(errors.New("compression failed"))

		input := sampleInput()
		input.ImagePath = "/photos/ramen.jpg"

		if _, err := h.Service.AddRecord(context.Background(), input); err == nil {
			t.Fatal("AddRecord() expected error")
		}
		col, err := h.Store.Fetch(context.Background(), "")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(col) != 0 {
			t.Errorf("len(col) = %d, want 0 after aborted submission", len(col))
		}
	})

	t.Run("invalid ratings are rejected", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		input := sampleInput()
		input.Taste = 11
		if _, err := h.Service.AddRecord(context.Background(), input); err == nil {
			t.Error("AddRecord() expected error for rating 11")
		}
	})

	t.Run("unparseable price is rejected", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		input := sampleInput()
		input.Price = "cheap"
		if _, err := h.Service.AddRecord(context.Background(), input); err == nil {
			t.Error("AddRecord() expected error for bad price")
		}
	})

	t.Run("surfaces a version conflict from a concurrent writer", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		h.Store.SaveHook = func() {
			h.Store.SaveHook = nil
			other := model.Collection{{Restaurant: "Rival", FoodItem: "Pho", Price: 900,
				Ratings: model.Ratings{Taste: 5, Texture: 5, Size: 5, Value: 5}, Timestamp: "2026-03-14T11:59:00Z"}}
			if err := h.Store.SaveDirect(other); err != nil {
				t.Errorf("SaveDirect() error = %v", err)
			}
		}

		_, err := h.Service.AddRecord(context.Background(), sampleInput())
		if !errors.Is(err, review.ErrVersionConflict) {
			t.Errorf("AddRecord() error = %v, want ErrVersionConflict", err)
		}
	})
}

func TestService_SingleInFlightMutation(t *testing.T) {
	h := testutil.NewServiceHarness()
	login(t, h)

	// Trigger a second mutation while the first one is between its version
	// read and its write. The second call must refuse, not queue.
	var second error
	h.Store.SaveHook = func() {
		h.Store.SaveHook = nil
		_, second = h.Service.AddRecord(context.Background(), sampleInput())
	}

	if _, err := h.Service.AddRecord(context.Background(), sampleInput()); err != nil {
		t.Fatalf("AddRecord() error = %v", err)
	}
	if !errors.Is(second, review.ErrBusy) {
		t.Errorf("second AddRecord() error = %v, want ErrBusy", second)
	}

	col, err := h.Store.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(col) != 1 {
		t.Errorf("len(col) = %d, want 1 (no duplicate write)", len(col))
	}
}

func TestService_DeleteRecord(t *testing.T) {
	t.Run("removes the record at the index", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		for _, name := range []string{"First", "Second", "Third"} {
			input := sampleInput()
			input.Restaurant = name
			if _, err := h.Service.AddRecord(context.Background(), input); err != nil {
				t.Fatalf("AddRecord(%s) error = %v", name, err)
			}
		}

		if err := h.Service.DeleteRecord(context.Background(), 1); err != nil {
			t.Fatalf("DeleteRecord() error = %v", err)
		}

		col, err := h.Store.Fetch(context.Background(), "")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(col) != 2 {
			t.Fatalf("len(col) = %d, want 2", len(col))
		}
		if col[0].Restaurant != "First" || col[1].Restaurant != "Third" {
			t.Errorf("remaining = %q, %q", col[0].Restaurant, col[1].Restaurant)
		}
	})

	t.Run("requires login", func(t *testing.T) {
		h := testutil.NewServiceHarness()

		if err := h.Service.DeleteRecord(context.Background(), 0); !errors.Is(err, review.ErrNotLoggedIn) {
			t.Errorf("DeleteRecord() error = %v, want ErrNotLoggedIn", err)
		}
	})

	t.Run("out of range index is an error", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		if err := h.Service.DeleteRecord(context.Background(), 5); err == nil {
			t.Error("DeleteRecord() expected error for out-of-range index")
		}
	})

	t.Run("leaves the record's artifact in place", func(t *testing.T) {
		h := testutil.NewServiceHarness()
		login(t, h)

		input := sampleInput()
		input.ImagePath = "/photos/ramen.jpg"
		if _, err := h.Service.AddRecord(context.Background(), input); err != nil {
			t.Fatalf("AddRecord() error = %v", err)
		}
		if err := h.Service.DeleteRecord(context.Background(), 0); err != nil {
			t.Fatalf("DeleteRecord() error = %v", err)
		}
		if h.Store.ArtifactCount() != 1 {
			t.Errorf("ArtifactCount() = %d, want 1 (artifacts are never reclaimed)", h.Store.ArtifactCount())
		}
	})
}

func TestService_List(t *testing.T) {
	h := testutil.NewServiceHarness()

	seed := model.Collection{{Restaurant: "Taqueria", FoodItem: "Al Pastor", Price: 450,
		Ratings: model.Ratings{Taste: 9, Texture: 8, Size: 7, Value: 9}, Timestamp: "2026-01-02T10:00:00Z"}}
	if err := h.Store.SaveDirect(seed); err != nil {
		t.Fatalf("SaveDirect() error = %v", err)
	}

	// List works without a credential when the remote is publicly readable.
	col, err := h.Service.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(col) != 1 {
		t.Errorf("len(col) = %d, want 1", len(col))
	}
}

func TestService_FetchImage(t *testing.T) {
	h := testutil.NewServiceHarness()
	login(t, h)

	input := sampleInput()
	input.ImagePath = "/photos/ramen.jpg"
	rec, err := h.Service.AddRecord(context.Background(), input)
	if err != nil {
		t.Fatalf("AddRecord() error = %v", err)
	}

	data, err := h.Service.FetchImage(context.Background(), rec.Image)
	if err != nil {
		t.Fatalf("FetchImage() error = %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("FetchImage() = %q", data)
	}

	if _, err := h.Service.FetchImage(context.Background(), "images/0_missing.jpg"); !errors.Is(err, review.ErrNotFound) {
		t.Errorf("FetchImage() error = %v, want ErrNotFound", err)
	}
}

func TestService_History(t *testing.T) {
	h := testutil.NewServiceHarness()
	login(t, h)

	if _, err := h.Service.AddRecord(context.Background(), sampleInput()); err != nil {
		t.Fatalf("AddRecord() error = %v", err)
	}

	ops, err := h.Service.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	for _, op := range ops {
		if op.Status != "success" {
			t.Errorf("%s status = %q, want success", op.Operation, op.Status)
		}
	}
	// Both operations started at the same fixed instant; the later one
	// still lists first.
	if ops[0].Operation != "AddRecord" || ops[1].Operation != "Login" {
		t.Errorf("operations = %q, %q, want AddRecord then Login", ops[0].Operation, ops[1].Operation)
	}
}
