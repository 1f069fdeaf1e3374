package constants

import (
	"strings"
)

// Mode selects the output shape of a batch run.
type Mode string

const (
	ModeTabular  Mode = "tabular"  // one pipe-delimited file per run
	ModeArtifact Mode = "artifact" // normalized raster + text file per image
)

var allModes = []Mode{
	ModeTabular,
	ModeArtifact,
}

func ModesAsStringSlice() []string {
	result := make([]string, len(allModes))
	for i, m := range allModes {
		result[i] = string(m)
	}
	return result
}

// CanonicalizeMode maps user input (including the legacy menu numbers) onto a Mode.
func CanonicalizeMode(input string) (Mode, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return ModeTabular, false
	}

	synonyms := map[string]Mode{
		"1":         ModeTabular,
		"2":         ModeArtifact,
		"csv":       ModeTabular,
		"table":     ModeTabular,
		"records":   ModeTabular,
		"artifacts": ModeArtifact,
		"per-image": ModeArtifact,
		"files":     ModeArtifact,
	}
	if m, ok := synonyms[normalized]; ok {
		return m, true
	}

	for _, m := range allModes {
		if normalized == string(m) {
			return m, true
		}
	}
	return ModeTabular, false
}
