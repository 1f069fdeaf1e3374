package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
)

// BinaryThreshold is the midpoint of the 0..255 intensity range.
const BinaryThreshold = 128

func errNoImage() error { return common.ErrNoImage }

// Grayscale decodes raw (any registered format, palette images included) and
// converts it to luminance.
func Grayscale(raw RawImage) (NormalizedImage, error) {
	img, err := imaging.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: %v", common.ErrDecode, err)
	}
	return NormalizedImage{
		Gray:           toGray(imaging.Grayscale(img)),
		ContrastFactor: 1.0,
	}, nil
}

// Blur applies a gaussian blur. radius 0 leaves pixels untouched.
func Blur(img *NormalizedImage, radius float64) (NormalizedImage, error) {
	if img == nil || img.Gray == nil {
		return NormalizedImage{}, fmt.Errorf("%w: cannot apply blur", errNoImage())
	}
	if radius < 0 {
		return NormalizedImage{}, fmt.Errorf("%w: blur radius %v", common.ErrInvalidParameter, radius)
	}

	out := *img
	out.BlurRadius = radius
	if radius == 0 {
		out.Gray = toGray(img.Gray)
		return out, nil
	}
	out.Gray = toGray(imaging.Blur(img.Gray, radius))
	return out, nil
}

// Contrast scales each pixel's distance from the mean intensity by factor.
// factor 1 is the identity, below 1 flattens, above 1 sharpens.
func Contrast(img *NormalizedImage, factor float64) (NormalizedImage, error) {
	if img == nil || img.Gray == nil {
		return NormalizedImage{}, fmt.Errorf("%w: cannot enhance contrast", errNoImage())
	}
	if factor < 0 {
		return NormalizedImage{}, fmt.Errorf("%w: contrast factor %v", common.ErrInvalidParameter, factor)
	}

	out := *img
	out.ContrastFactor = factor
	if factor == 1 {
		out.Gray = toGray(img.Gray)
		return out, nil
	}

	mean := float64(meanIntensity(img.Gray))
	out.Gray = toGray(imaging.AdjustFunc(img.Gray, func(c color.NRGBA) color.NRGBA {
		v := clamp8(mean + factor*(float64(c.R)-mean))
		return color.NRGBA{R: v, G: v, B: v, A: 255}
	}))
	return out, nil
}

// Threshold binarizes: values above BinaryThreshold become 255, the rest 0.
func Threshold(img *NormalizedImage) (NormalizedImage, error) {
	if img == nil || img.Gray == nil {
		return NormalizedImage{}, fmt.Errorf("%w: cannot apply threshold", errNoImage())
	}
	out := *img
	out.Thresholded = true
	out.Gray = toGray(imaging.AdjustFunc(img.Gray, func(c color.NRGBA) color.NRGBA {
		if c.R > BinaryThreshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{A: 255}
	}))
	return out, nil
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// meanIntensity is the rounded average pixel value.
func meanIntensity(g *image.Gray) uint8 {
	b := g.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y) : g.PixOffset(b.Max.X-1, y)+1]
		for _, v := range row {
			sum += uint64(v)
		}
	}
	return uint8(float64(sum)/float64(n) + 0.5)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
