package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"platelog/internal/review"
)

// encoderStrategy is one rung of the encoder fallback ladder. Strategies
// are tried in order; the first one producing usable output wins, and
// exhausting the ladder is the typed terminal failure.
type encoderStrategy struct {
	name   string
	encode func(img image.Image, quality int) ([]byte, error)
}

// encoderLadder returns the ordered strategies: the native JPEG encoder,
// then a path that rebuilds the binary payload from a textual data-URL
// representation. Both rungs share the JPEG codec, so the second covers
// payload-assembly failures only, not codec failures.
func encoderLadder() []encoderStrategy {
	return []encoderStrategy{
		{name: "jpeg", encode: encodeJPEG},
		{name: "data-url", encode: encodeViaDataURL},
	}
}

// runLadder tries each strategy in order and returns the first usable
// output. Empty output is never usable.
func runLadder(img image.Image, quality int, logger review.Logger) ([]byte, error) {
	var lastErr error
	for _, s := range encoderLadder() {
		out, err := s.encode(img, quality)
		if err != nil {
			logger.Warn("encoder strategy failed", "strategy", s.name, "error", err)
			lastErr = err
			continue
		}
		if len(out) == 0 {
			logger.Warn("encoder strategy produced no output", "strategy", s.name)
			lastErr = fmt.Errorf("strategy %s produced no output", s.name)
			continue
		}
		return out, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", review.ErrCompressionFailed, lastErr)
	}
	return nil, review.ErrCompressionFailed
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeViaDataURL renders the image to a textual data-URL and manually
// reconstructs the binary payload from it. It cannot recover from a codec
// failure; it exists to keep the ladder exercising both payload shapes.
func encodeViaDataURL(img image.Image, quality int) ([]byte, error) {
	raw, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, err
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	_, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url")
	}
	out, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding data url payload: %w", err)
	}
	return out, nil
}
