package preprocess

import (
	"github.com/joseph-ayodele/image-ocr-batch/constants"
	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
)

// Pipeline holds the caller-supplied transform parameters.
type Pipeline struct {
	BlurRadius     float64
	ContrastFactor float64
	// Threshold enables the final binarization step. Off by default.
	Threshold bool
}

// DefaultPipeline mirrors the batch defaults: no blur, contrast 1.5, no threshold.
func DefaultPipeline() Pipeline {
	return Pipeline{BlurRadius: 0, ContrastFactor: 1.5}
}

// Preprocess orients raw and runs the transform chain on the result.
func (p Pipeline) Preprocess(raw RawImage) (NormalizedImage, error) {
	oriented, err := Orient(raw)
	if err != nil {
		return NormalizedImage{}, common.NewStageError(constants.StageOrient, raw.Source, err)
	}
	return p.Run(oriented)
}

// Run applies grayscale, blur, contrast and (optionally) threshold, in that order.
// The first failing stage aborts the chain and is named in the returned *common.StageError.
func (p Pipeline) Run(raw RawImage) (NormalizedImage, error) {
	gray, err := Grayscale(raw)
	if err != nil {
		return NormalizedImage{}, common.NewStageError(constants.StageGrayscale, raw.Source, err)
	}

	blurred, err := Blur(&gray, p.BlurRadius)
	if err != nil {
		return NormalizedImage{}, common.NewStageError(constants.StageBlur, raw.Source, err)
	}

	enhanced, err := Contrast(&blurred, p.ContrastFactor)
	if err != nil {
		return NormalizedImage{}, common.NewStageError(constants.StageContrast, raw.Source, err)
	}

	if !p.Threshold {
		return enhanced, nil
	}
	binary, err := Threshold(&enhanced)
	if err != nil {
		return NormalizedImage{}, common.NewStageError(constants.StageThreshold, raw.Source, err)
	}
	return binary, nil
}
