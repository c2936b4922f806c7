package store

import (
	"context"
	"fmt"

	"platelog/internal/config"
	"platelog/internal/review"
)

// NewArtifactStoreFromConfig creates an ArtifactStore based on the
// artifact config type. The GitHub store is passed in because it doubles
// as the default artifact backend.
func NewArtifactStoreFromConfig(ctx context.Context, cfg config.ArtifactConfig, gh *GitHub, logger review.Logger) (review.ArtifactStore, error) {
	switch cfg.Type {
	case "github", "":
		return gh, nil
	case "s3":
		return NewS3(ctx, cfg, logger)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem artifact store requires fs_root to be set")
		}
		return NewFilesystem(cfg.FSRoot)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown artifact store type: %s", cfg.Type)
	}
}
