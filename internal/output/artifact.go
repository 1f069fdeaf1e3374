package output

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
	"github.com/joseph-ayodele/image-ocr-batch/internal/entity"
	"github.com/joseph-ayodele/image-ocr-batch/internal/preprocess"
)

// Stem is the source's base file name without extension. URLs use the last
// path segment. Sources without a usable name get "image_<seq>".
func Stem(source string, seq int) string {
	base := source
	if u, err := url.Parse(source); err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https") {
		base = path.Base(u.Path)
	} else {
		base = filepath.Base(filepath.FromSlash(source))
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" || stem == string(filepath.Separator) {
		return fmt.Sprintf("image_%d", seq)
	}
	return stem
}

// ArtifactWriter persists normalized rasters as <stem>.png in Dir.
type ArtifactWriter struct {
	Dir string
}

// Save writes img and returns the file path.
func (a ArtifactWriter) Save(source string, seq int, img preprocess.NormalizedImage) (string, error) {
	data, err := img.EncodePNG()
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	p := filepath.Join(a.Dir, Stem(source, seq)+constants.ArtifactExt)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return p, nil
}

// TextSink writes each record's text to <stem>.txt next to its artifact.
type TextSink struct {
	Dir string
}

func (t TextSink) Write(_ context.Context, rec entity.Record) error {
	name := rec.Source
	if rec.Artifact != "" {
		name = rec.Artifact
	}
	p := filepath.Join(t.Dir, Stem(name, rec.Seq)+constants.TextExt)
	if err := os.WriteFile(p, []byte(rec.Text), 0o644); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

func (TextSink) Close() error { return nil }
