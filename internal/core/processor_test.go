package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
	"github.com/joseph-ayodele/image-ocr-batch/internal/entity"
	"github.com/joseph-ayodele/image-ocr-batch/internal/ocr"
	"github.com/joseph-ayodele/image-ocr-batch/internal/output"
	"github.com/joseph-ayodele/image-ocr-batch/internal/source"
)

var fixedNow = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

// stubEngine answers by input ID. IDs listed in fail return an error.
type stubEngine struct {
	lines map[string][]string
	fail  map[string]bool
	block bool
	seen  []ocr.Input
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	s.seen = append(s.seen, in)
	if s.block {
		<-ctx.Done()
		return ocr.Result{}, ctx.Err()
	}
	if s.fail[in.ID] {
		return ocr.Result{}, errors.New("engine exploded")
	}
	return ocr.Result{Lines: s.lines[in.ID], Engine: "stub"}, nil
}

type memSink struct {
	recs []entity.Record
	err  error
}

func (m *memSink) Write(_ context.Context, rec entity.Record) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memSink) Close() error { return nil }

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 6))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(3, 3, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func newProcessor(engine ocr.Engine, sink output.Sink, opts Options) *Processor {
	opts.Now = func() time.Time { return fixedNow }
	return NewProcessor(nil, source.NewLoader(source.LoaderOptions{}, nil), engine, sink, opts)
}

func TestRunMissingFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	missing := filepath.Join(dir, "missing.png")
	writePNG(t, good)

	for name, sources := range map[string][]string{
		"missing last":  {good, missing},
		"missing first": {missing, good},
	} {
		t.Run(name, func(t *testing.T) {
			outDir := t.TempDir()
			csvSink, err := output.NewCSVSink(outDir, fixedNow)
			require.NoError(t, err)

			engine := &stubEngine{lines: map[string][]string{good: {"ab", "hello world", "x"}}}
			p := newProcessor(engine, csvSink, Options{})

			rep, err := p.Run(context.Background(), sources)
			require.NoError(t, err)
			require.NoError(t, csvSink.Close())

			assert.Equal(t, 2, rep.Total)
			assert.Equal(t, 1, rep.Processed)
			assert.Equal(t, 1, rep.Skipped)
			assert.Zero(t, rep.Failed)
			require.Len(t, rep.Diagnostics, 1)
			assert.Equal(t, missing, rep.Diagnostics[0].Source)
			assert.Equal(t, constants.StageFetch, rep.Diagnostics[0].Stage)
			assert.ErrorIs(t, rep.Diagnostics[0].Err, common.ErrSourceFetch)

			data, err := os.ReadFile(csvSink.Path())
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			require.Len(t, lines, 2)
			assert.Equal(t, "1|2024-05-01 08:30:00|"+good+`|"""hello world"""`, lines[1])
		})
	}
}

func TestRunEngineFailureContinues(t *testing.T) {
	dir := t.TempDir()
	a, b, c := filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png"), filepath.Join(dir, "c.png")
	for _, p := range []string{a, b, c} {
		writePNG(t, p)
	}

	engine := &stubEngine{
		lines: map[string][]string{a: {"first image"}, c: {"third | image"}},
		fail:  map[string]bool{b: true},
	}
	sink := &memSink{}
	p := newProcessor(engine, sink, Options{})

	rep, err := p.Run(context.Background(), []string{a, b, c})
	require.NoError(t, err)

	require.Len(t, sink.recs, 2)
	assert.Equal(t, a, sink.recs[0].Source)
	assert.Equal(t, 1, sink.recs[0].Seq)
	assert.Equal(t, c, sink.recs[1].Source)
	assert.Equal(t, 2, sink.recs[1].Seq)
	assert.Equal(t, "third  image", sink.recs[1].Text)
	assert.Equal(t, "stub", sink.recs[1].Engine)
	assert.Equal(t, p.RunID(), sink.recs[1].RunID)

	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, constants.StageRecognize, rep.Diagnostics[0].Stage)
	assert.ErrorIs(t, rep.Diagnostics[0].Err, common.ErrRecognition)
	assert.Contains(t, rep.Diagnostics[0].String(), "engine exploded")

	// tabular mode hands the engine an in-memory PNG
	require.Len(t, engine.seen, 3)
	assert.Empty(t, engine.seen[0].Path)
	_, format, err := image.DecodeConfig(bytes.NewReader(engine.seen[0].Image))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestRunUndecodableImage(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not really a jpeg"), 0o644))

	engine := &stubEngine{}
	rep, err := newProcessor(engine, &memSink{}, Options{}).Run(context.Background(), []string{bad})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, constants.StageOrient, rep.Diagnostics[0].Stage)
	assert.ErrorIs(t, rep.Diagnostics[0].Err, common.ErrDecode)
	assert.Empty(t, engine.seen, "OCR must not run on an undecodable image")
}

func TestRunArtifactMode(t *testing.T) {
	in := filepath.Join(t.TempDir(), "receipt.jpg.png")
	writePNG(t, in)
	outDir := t.TempDir()

	engine := &stubEngine{lines: map[string][]string{in: {"Total due here"}}}
	sink := &memSink{}
	p := newProcessor(engine, output.MultiSink{sink, output.TextSink{Dir: outDir}}, Options{
		Mode:        constants.ModeArtifact,
		ArtifactDir: outDir,
	})

	rep, err := p.Run(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Processed)

	artifact := filepath.Join(outDir, "receipt.jpg.png")
	require.Len(t, engine.seen, 1)
	assert.Equal(t, artifact, engine.seen[0].Path, "OCR runs against the persisted artifact")
	assert.Empty(t, engine.seen[0].Image)
	assert.FileExists(t, artifact)

	require.Len(t, sink.recs, 1)
	assert.Equal(t, artifact, sink.recs[0].Artifact)

	txt, err := os.ReadFile(filepath.Join(outDir, "receipt.jpg.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Total due here", string(txt))
}

func TestRunSinkFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")
	writePNG(t, a)
	writePNG(t, b)

	engine := &stubEngine{lines: map[string][]string{a: {"some text"}, b: {"more text"}}}
	boom := errors.New("disk full")
	rep, err := newProcessor(engine, &memSink{err: boom}, Options{}).Run(context.Background(), []string{a, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrBatchFatal)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, constants.StagePersist, common.StageOf(err))
	assert.Len(t, engine.seen, 1, "batch stops at the failing write")
	assert.Zero(t, rep.Processed)
}

func TestRunOCRTimeout(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a)

	engine := &stubEngine{block: true}
	rep, err := newProcessor(engine, &memSink{}, Options{OCRTimeout: 20 * time.Millisecond}).
		Run(context.Background(), []string{a, a})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Failed)
	require.Len(t, rep.Diagnostics, 2)
	assert.ErrorIs(t, rep.Diagnostics[0].Err, context.DeadlineExceeded)
	assert.ErrorIs(t, rep.Diagnostics[0].Err, common.ErrRecognition)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &stubEngine{}
	rep, err := newProcessor(engine, &memSink{}, Options{}).Run(ctx, []string{"a.png", "b.png"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rep.Processed)
	assert.Empty(t, rep.Diagnostics)
}

func TestNewProcessorDefaults(t *testing.T) {
	runID := uuid.New()
	p := NewProcessor(nil, source.NewLoader(source.LoaderOptions{}, nil), &stubEngine{}, &memSink{}, Options{RunID: runID})
	assert.Equal(t, runID, p.RunID())
	assert.Equal(t, constants.ModeTabular, p.opts.Mode)
	assert.Equal(t, 1.5, p.opts.Pipeline.ContrastFactor)

	assert.NotEqual(t, uuid.Nil, NewProcessor(nil, nil, &stubEngine{}, &memSink{}, Options{}).RunID())
}
