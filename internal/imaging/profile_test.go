package imaging

import (
	"testing"

	"platelog/internal/config"
)

func TestFromConfig(t *testing.T) {
	t.Run("empty profile defaults to desktop", func(t *testing.T) {
		got, err := FromConfig(config.ImagingConfig{})
		if err != nil {
			t.Fatalf("FromConfig() error = %v", err)
		}
		want := DesktopProfile()
		if got != want {
			t.Errorf("FromConfig() = %+v, want desktop defaults", got)
		}
	})

	t.Run("constrained profile tightens every bound", func(t *testing.T) {
		desktop := DesktopProfile()
		constrained := ConstrainedProfile()
		if constrained.MaxWidth >= desktop.MaxWidth {
			t.Error("constrained MaxWidth should be below desktop")
		}
		if constrained.ByteBudget >= desktop.ByteBudget {
			t.Error("constrained ByteBudget should be below desktop")
		}
		if constrained.MaxSourceBytes >= desktop.MaxSourceBytes {
			t.Error("constrained MaxSourceBytes should be below desktop")
		}
		if constrained.Quality >= desktop.Quality {
			t.Error("constrained Quality should be below desktop")
		}
	})

	t.Run("overrides replace profile defaults", func(t *testing.T) {
		got, err := FromConfig(config.ImagingConfig{
			Profile:    "constrained",
			Quality:    70,
			ByteBudget: 123456,
		})
		if err != nil {
			t.Fatalf("FromConfig() error = %v", err)
		}
		if got.Quality != 70 {
			t.Errorf("Quality = %d, want 70", got.Quality)
		}
		if got.ByteBudget != 123456 {
			t.Errorf("ByteBudget = %d, want 123456", got.ByteBudget)
		}
		if got.MaxWidth != ConstrainedProfile().MaxWidth {
			t.Errorf("MaxWidth = %d, want profile default", got.MaxWidth)
		}
	})

	t.Run("unknown profile is an error", func(t *testing.T) {
		if _, err := FromConfig(config.ImagingConfig{Profile: "mainframe"}); err == nil {
			t.Error("expected error for unknown profile")
		}
	})

	t.Run("min quality above quality is an error", func(t *testing.T) {
		if _, err := FromConfig(config.ImagingConfig{Quality: 50, MinQuality: 60}); err == nil {
			t.Error("expected error for min_quality > quality")
		}
	})
}
