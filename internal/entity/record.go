package entity

import (
	"time"

	"github.com/google/uuid"
)

// Record is one processed image, written to every configured sink as soon as it exists.
type Record struct {
	RunID       uuid.UUID `json:"run_id"`
	Seq         int       `json:"seq"` // 1-based, counts written records
	ProcessedAt time.Time `json:"processed_at"`
	Source      string    `json:"source"` // path or URL as listed
	Text        string    `json:"text"`   // cleaned text; never contains '|'
	Engine      string    `json:"engine"`
	Artifact    string    `json:"artifact,omitempty"` // normalized raster path, artifact mode only
}
