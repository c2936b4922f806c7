package review

import (
	"context"
	"errors"
)

// Pipeline error taxonomy. Each media failure carries a specific, actionable
// message; any of them during submission aborts the whole submission so a
// record is never saved with a half-completed image reference.
var (
	// ErrNotAnImage rejects a file whose content does not look like a
	// supported raster image.
	ErrNotAnImage = errors.New("file is not a supported image")

	// ErrSourceTooLarge rejects a source file over the hard ceiling for
	// the active device profile. The user should try a smaller image.
	ErrSourceTooLarge = errors.New("image file is too large")

	// ErrDecodeTimeout converts a decode that never completes into a
	// reported failure instead of a hang.
	ErrDecodeTimeout = errors.New("image decode timed out")

	// ErrCompressionFailed is the terminal outcome after every encoding
	// strategy has been exhausted. The caller decides explicitly whether
	// to proceed without the image; nothing is dropped silently.
	ErrCompressionFailed = errors.New("image compression failed")
)

// ImagePipeline converts a user-supplied file into an upload-ready artifact
// with a best-effort preview. It never returns a zero-byte or over-budget
// artifact as a success; any ambiguous outcome is a failure.
type ImagePipeline interface {
	Process(ctx context.Context, path string) (*Artifact, error)
}
