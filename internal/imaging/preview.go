package imaging

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const previewQuality = 75

// preview renders a small raster for immediate user feedback, bounded by
// maxEdge on the longest side. It is best-effort: any failure returns nil
// and must not fail the operation.
func preview(img image.Image, maxEdge int) []byte {
	if img == nil || maxEdge <= 0 {
		return nil
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	pw, ph := fitWithin(w, h, maxEdge, maxEdge)
	small := scale(img, pw, ph)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil
	}
	return buf.Bytes()
}

// fitWithin computes dimensions preserving aspect ratio such that both
// width and height fit the bounds. Images already within bounds keep their
// dimensions; nothing is ever upscaled.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	rw := float64(maxW) / float64(w)
	rh := float64(maxH) / float64(h)
	r := rw
	if rh < r {
		r = rh
	}
	nw := int(float64(w) * r)
	nh := int(float64(h) * r)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// scale resamples img to the given dimensions.
func scale(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
