package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"platelog/internal/review"
)

func TestFilesystem(t *testing.T) {
	ctx := context.Background()
	when := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("put and get round trip", func(t *testing.T) {
		f, err := NewFilesystem(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystem() error = %v", err)
		}

		ref, err := f.Put(ctx, &review.Artifact{Name: "dish.jpg", Bytes: []byte("jpegdata")}, when, "")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := f.Get(ctx, ref, "")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != "jpegdata" {
			t.Errorf("Get() = %q", got)
		}
	})

	t.Run("existing artifact is never overwritten", func(t *testing.T) {
		f, err := NewFilesystem(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystem() error = %v", err)
		}

		art := &review.Artifact{Name: "dish.jpg", Bytes: []byte("one")}
		if _, err := f.Put(ctx, art, when, ""); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if _, err := f.Put(ctx, art, when, ""); err == nil {
			t.Error("second Put() at same path expected error")
		}
	})

	t.Run("missing artifact wraps ErrNotFound", func(t *testing.T) {
		f, err := NewFilesystem(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystem() error = %v", err)
		}
		_, err = f.Get(ctx, "images/1_gone.jpg", "")
		if !errors.Is(err, review.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"photo.jpg", "photo.jpg"},
		{"my photo!.jpg", "my_photo_.jpg"},
		{"../../etc/passwd", "passwd"},
		{"..\\evil.exe", "evil.exe"},
		{".hidden", "hidden"},
		{"", "image"},
		{"日本語.png", "___.png"},
	}
	for _, c := range cases {
		if got := SanitizeName(c.in); got != c.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
