package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPlateHandler_Handle(t *testing.T) {
	ts := time.Date(2026, 3, 14, 12, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "record added",
			want:    "2026-03-14T12:30:45Z\tINFO\top-123\trecord added\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "journaling operation failed",
			want:    "2026-03-14T12:30:45Z\tWARN\top-456\tjournaling operation failed\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "image uploaded",
			attrs:   []slog.Attr{slog.String("ref", "images/1_a.jpg"), slog.Int("bytes", 42)},
			want:    "2026-03-14T12:30:45Z\tINFO\top-789\timage uploaded\tref=images/1_a.jpg\tbytes=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &plateHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlateHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := (&plateHandler{w: &buf, opID: "op-1"}).WithAttrs([]slog.Attr{slog.String("command", "AddRecord")})

	r := slog.NewRecord(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "record added", 0)
	r.AddAttrs(slog.String("restaurant", "Noodle Bar"))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\tcommand=AddRecord\t") {
		t.Errorf("output %q missing pre-set attr before record attrs", got)
	}
	if !strings.HasSuffix(got, "\trestaurant=Noodle Bar\n") {
		t.Errorf("output %q missing record attr", got)
	}
}
