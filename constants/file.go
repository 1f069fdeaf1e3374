package constants

import "strings"

// AllowedExtensions holds the image extensions picked up when a directory is scanned.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

const (
	// ArtifactExt is the container used for persisted normalized rasters.
	ArtifactExt = ".png"
	// TextExt is used for the per-image text output next to an artifact.
	TextExt = ".txt"

	ResultsFilePrefix  = "OCR_Results_"
	ResultsFileStamp   = "20060102_150405"
	RecordTimestamp    = "2006-01-02 15:04:05"
	ResultsCSVExt      = ".csv"
	ResultsWorkbookExt = ".xlsx"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without the dot) is a known image extension.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
