package imaging

import (
	"fmt"
	"time"

	"platelog/internal/config"
)

// CompressionConfig bounds the ingestion pipeline for one device class.
type CompressionConfig struct {
	MaxWidth       int           // re-encode bound, pixels
	MaxHeight      int           // re-encode bound, pixels
	Quality        int           // initial JPEG quality, 1-100
	MinQuality     int           // floor for the single lower-quality retry
	ByteBudget     int64         // target artifact size; inputs at or under pass through untouched
	MaxSourceBytes int64         // hard ceiling on the source file
	PreviewEdge    int           // longest edge of the best-effort preview
	DecodeTimeout  time.Duration // bound on a single image decode
}

// DesktopProfile is the default device class.
func DesktopProfile() CompressionConfig {
	return CompressionConfig{
		MaxWidth:       800,
		MaxHeight:      800,
		Quality:        80,
		MinQuality:     50,
		ByteBudget:     500 * 1024,
		MaxSourceBytes: 25 * 1024 * 1024,
		PreviewEdge:    400,
		DecodeTimeout:  10 * time.Second,
	}
}

// ConstrainedProfile fits memory-limited, mobile-class devices: tighter
// dimensions, lower quality, smaller budgets.
func ConstrainedProfile() CompressionConfig {
	return CompressionConfig{
		MaxWidth:       600,
		MaxHeight:      600,
		Quality:        65,
		MinQuality:     40,
		ByteBudget:     300 * 1024,
		MaxSourceBytes: 15 * 1024 * 1024,
		PreviewEdge:    400,
		DecodeTimeout:  10 * time.Second,
	}
}

// FromConfig resolves the configured profile and applies per-field
// overrides. Zero-valued overrides keep the profile default.
func FromConfig(cfg config.ImagingConfig) (CompressionConfig, error) {
	var c CompressionConfig
	switch cfg.Profile {
	case "desktop", "":
		c = DesktopProfile()
	case "constrained":
		c = ConstrainedProfile()
	default:
		return CompressionConfig{}, fmt.Errorf("unknown imaging profile: %q", cfg.Profile)
	}

	if cfg.MaxWidth > 0 {
		c.MaxWidth = cfg.MaxWidth
	}
	if cfg.MaxHeight > 0 {
		c.MaxHeight = cfg.MaxHeight
	}
	if cfg.Quality > 0 {
		c.Quality = cfg.Quality
	}
	if cfg.MinQuality > 0 {
		c.MinQuality = cfg.MinQuality
	}
	if cfg.ByteBudget > 0 {
		c.ByteBudget = cfg.ByteBudget
	}
	if cfg.MaxSourceBytes > 0 {
		c.MaxSourceBytes = cfg.MaxSourceBytes
	}
	if c.MinQuality > c.Quality {
		return CompressionConfig{}, fmt.Errorf("min_quality %d exceeds quality %d", c.MinQuality, c.Quality)
	}
	return c, nil
}
