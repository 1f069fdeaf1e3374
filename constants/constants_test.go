package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"tabular", ModeTabular, true},
		{"  CSV ", ModeTabular, true},
		{"artifact", ModeArtifact, true},
		{"per-image", ModeArtifact, true},
		{"1", ModeTabular, true},
		{" 2 ", ModeArtifact, true},
		{"3", ModeTabular, false},
		{"", ModeTabular, false},
		{"pdf", ModeTabular, false},
	}
	for _, tc := range cases {
		got, ok := CanonicalizeMode(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
	assert.Equal(t, []string{"tabular", "artifact"}, ModesAsStringSlice())
}

func TestIsAllowedExt(t *testing.T) {
	assert.True(t, IsAllowedExt(".JPG"))
	assert.True(t, IsAllowedExt("tiff"))
	assert.True(t, IsAllowedExt(".WebP"))
	assert.False(t, IsAllowedExt(".txt"))
	assert.False(t, IsAllowedExt(""))
}
