package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
)

const (
	// FlippedOrientation is the EXIF code the camera source reports for sideways shots.
	FlippedOrientation = 6
	// JPEGQuality matches the encoder default the deployment was tuned against.
	JPEGQuality = 75
)

// ReadOrientation returns the EXIF orientation code embedded in data, or 0 when absent.
func ReadOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

// Orient applies the orientation rule and re-encodes the result as JPEG.
//
// Code 6 images are turned 180°, which does not bring them upright; the
// mapping is kept exactly as the capture setup has always used it. Every other
// code, and images without EXIF, are only re-encoded. raw.Orientation, when non-zero,
// overrides the embedded value.
func Orient(raw RawImage) (RawImage, error) {
	img, err := imaging.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return RawImage{}, fmt.Errorf("%w: %v", common.ErrDecode, err)
	}

	code := raw.Orientation
	if code == 0 {
		code = ReadOrientation(raw.Data)
	}
	if code == FlippedOrientation {
		img = imaging.Rotate180(img)
	}

	out, err := encodeJPEG(img)
	if err != nil {
		return RawImage{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return RawImage{Data: out, Source: raw.Source}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	// JPEG has no alpha; composite onto white so transparent areas read as paper.
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		b := img.Bounds()
		bg := imaging.New(b.Dx(), b.Dy(), color.White)
		img = imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
