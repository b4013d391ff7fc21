// Package imgcompress normalizes captured evidence photos to a bounded
// file size and maximum dimension before upload.
package imgcompress

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Defaults for evidence photos.
const (
	DefaultMaxKB       = 800
	DefaultMaxDim      = 1920
	DefaultStartQ      = 80
	DefaultQualityStep = 10
	DefaultFloorQ      = 30
)

// Options bound the output of Compress.
type Options struct {
	MaxKB        int // size budget for the encoded output
	MaxDim       int // longest side after downscaling; smaller images are never upsampled
	StartQuality int // initial JPEG quality (percent)
	QualityStep  int // quality decrement per attempt
	FloorQuality int // lowest acceptable quality
}

// DefaultOptions returns the evidence photo defaults.
func DefaultOptions() Options {
	return Options{
		MaxKB:        DefaultMaxKB,
		MaxDim:       DefaultMaxDim,
		StartQuality: DefaultStartQ,
		QualityStep:  DefaultQualityStep,
		FloorQuality: DefaultFloorQ,
	}
}

// Result describes what Compress produced.
type Result struct {
	Width   int
	Height  int
	Quality int // quality of the final encode
	Bytes   int
}

// Compress decodes an image, downscales it so its longest side does not
// exceed MaxDim, and re-encodes it as JPEG, lowering quality stepwise
// until the output fits the size budget or the quality floor is reached -
// whichever comes first. Small images are never upsampled.
func Compress(r io.Reader, opts Options) ([]byte, Result, error) {
	if opts.MaxKB <= 0 || opts.MaxDim <= 0 || opts.StartQuality <= 0 {
		opts = DefaultOptions()
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to decode image: %w", err)
	}

	img = bound(img, opts.MaxDim)

	budget := opts.MaxKB * 1024
	var buf bytes.Buffer
	quality := opts.StartQuality
	for {
		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, Result{}, fmt.Errorf("failed to encode image at quality %d: %w", quality, err)
		}
		if buf.Len() <= budget || quality <= opts.FloorQuality {
			break
		}
		quality -= opts.QualityStep
		if quality < opts.FloorQuality {
			quality = opts.FloorQuality
		}
	}

	b := img.Bounds()
	return buf.Bytes(), Result{
		Width:   b.Dx(),
		Height:  b.Dy(),
		Quality: quality,
		Bytes:   buf.Len(),
	}, nil
}

// bound downscales img so its longest side is at most maxDim. Images
// already within the bound are returned untouched.
func bound(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}
