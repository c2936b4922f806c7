package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif" // decoder registration
	_ "image/png" // decoder registration

	_ "golang.org/x/image/webp" // decoder registration

	"platelog/internal/review"
)

// Pipeline converts a user-selected file into an upload-ready artifact:
// validation, best-effort preview, bounded decode, aspect-preserving
// downscale, JPEG re-encode with a single lower-quality retry, and an
// encoder fallback ladder. Already-small inputs pass through untouched.
type Pipeline struct {
	cfg    CompressionConfig
	logger review.Logger
}

var _ review.ImagePipeline = (*Pipeline)(nil)

// New creates a Pipeline for the given device profile.
func New(cfg CompressionConfig, logger review.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Process runs the full ingestion ladder on the file at path.
// It never returns a zero-byte or over-budget artifact as a success.
func (p *Pipeline) Process(ctx context.Context, path string) (*review.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading image file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", review.ErrNotAnImage, path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: file is empty", review.ErrNotAnImage)
	}
	if info.Size() > p.cfg.MaxSourceBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit, try a smaller image",
			review.ErrSourceTooLarge, info.Size(), p.cfg.MaxSourceBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image file: %w", err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: detected %s", review.ErrNotAnImage, contentType)
	}

	name := filepath.Base(path)

	// Already within budget: the artifact is the source, byte for byte.
	// The preview stays best-effort and must not block the upload path.
	if info.Size() <= p.cfg.ByteBudget {
		art := &review.Artifact{
			Name:        name,
			ContentType: contentType,
			Bytes:       data,
		}
		if img, _, derr := p.decode(ctx, data); derr == nil {
			art.Preview = preview(img, p.cfg.PreviewEdge)
		} else {
			p.logger.Warn("preview generation skipped", "name", name, "error", derr)
		}
		return art, nil
	}

	img, format, err := p.decode(ctx, data)
	if err != nil {
		if errors.Is(err, review.ErrDecodeTimeout) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", review.ErrNotAnImage, err)
	}
	p.logger.Debug("image decoded", "name", name, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	out, err := p.compress(img)
	if err != nil {
		return nil, err
	}

	art := &review.Artifact{
		Name:        jpegName(name),
		ContentType: "image/jpeg",
		Bytes:       out,
		Preview:     preview(img, p.cfg.PreviewEdge),
	}
	p.logger.Info("image compressed", "name", art.Name,
		"from", len(data), "to", len(out))
	return art, nil
}

// compress downscales and re-encodes, retrying once at lower quality when
// the first pass misses the byte budget. Missing the budget twice is an
// explicit failure.
func (p *Pipeline) compress(img image.Image) ([]byte, error) {
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), p.cfg.MaxWidth, p.cfg.MaxHeight)
	scaled := scale(img, w, h)

	out, err := runLadder(scaled, p.cfg.Quality, p.logger)
	if err != nil {
		return nil, err
	}
	if int64(len(out)) <= p.cfg.ByteBudget {
		return out, nil
	}

	retryQuality := p.cfg.Quality - 20
	if retryQuality < p.cfg.MinQuality {
		retryQuality = p.cfg.MinQuality
	}
	p.logger.Debug("re-encoding at reduced quality", "bytes", len(out), "quality", retryQuality)

	out, err = runLadder(scaled, retryQuality, p.logger)
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > p.cfg.ByteBudget {
		return nil, fmt.Errorf("%w: %d bytes still over the %d byte budget after retry",
			review.ErrCompressionFailed, len(out), p.cfg.ByteBudget)
	}
	return out, nil
}

// decode runs image.Decode bounded by the configured timeout, converting a
// decode that never completes into a reported failure.
func (p *Pipeline) decode(ctx context.Context, data []byte) (image.Image, string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.DecodeTimeout)
	defer cancel()

	type result struct {
		img    image.Image
		format string
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		img, format, err := image.Decode(bytes.NewReader(data))
		ch <- result{img, format, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", review.ErrDecodeTimeout
		}
		return nil, "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, "", r.err
		}
		return r.img, r.format, nil
	}
}

// jpegName swaps the extension for the re-encoded output.
func jpegName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".jpg"
}
