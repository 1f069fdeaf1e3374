package constants

// Stage names the step of the per-image flow that produced a diagnostic.
type Stage string

// Stable values (they appear in logs and run reports).
const (
	StageFetch     Stage = "fetch"     // local read or HTTP GET
	StageOrient    Stage = "orient"    // EXIF orientation + re-encode
	StageGrayscale Stage = "grayscale" // luminance conversion
	StageBlur      Stage = "blur"      // gaussian blur
	StageContrast  Stage = "contrast"  // contrast enhancement
	StageThreshold Stage = "threshold" // optional binarization
	StageArtifact  Stage = "artifact"  // persisting the normalized raster
	StageRecognize Stage = "recognize" // OCR engine call
	StagePersist   Stage = "persist"   // writing the record
)
