// Package preprocess normalizes images before they are handed to an OCR engine.
//
// Every step is a pure function returning a new value; failures are returned,
// never printed.
package preprocess

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers WebP with image.Decode
)

// RawImage is an encoded image as loaded from a source.
type RawImage struct {
	Data []byte
	// Orientation is the EXIF orientation code; 0 means unknown/absent.
	Orientation int
	Source      string
}

// NormalizedImage is a single-channel raster and the parameters that produced it.
type NormalizedImage struct {
	Gray           *image.Gray
	BlurRadius     float64
	ContrastFactor float64
	Thresholded    bool
}

// Bounds is a convenience for callers that only need dimensions.
func (n NormalizedImage) Bounds() image.Rectangle {
	if n.Gray == nil {
		return image.Rectangle{}
	}
	return n.Gray.Bounds()
}

// EncodePNG encodes the raster losslessly, which is what OCR inputs and artifacts use.
func (n NormalizedImage) EncodePNG() ([]byte, error) {
	if n.Gray == nil {
		return nil, errNoImage()
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, n.Gray, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
