// Package core drives the per-image batch loop.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
	"github.com/joseph-ayodele/image-ocr-batch/internal/entity"
	"github.com/joseph-ayodele/image-ocr-batch/internal/ocr"
	"github.com/joseph-ayodele/image-ocr-batch/internal/output"
	"github.com/joseph-ayodele/image-ocr-batch/internal/preprocess"
	"github.com/joseph-ayodele/image-ocr-batch/internal/source"
	"github.com/joseph-ayodele/image-ocr-batch/internal/textclean"
)

// Options tunes a Processor. Zero values fall back to the batch defaults.
type Options struct {
	RunID      uuid.UUID
	Mode       constants.Mode
	Pipeline   *preprocess.Pipeline // nil selects preprocess.DefaultPipeline
	OCRTimeout time.Duration
	Languages  []string
	// ArtifactDir receives normalized rasters in artifact mode.
	ArtifactDir string
	Now         func() time.Time
}

// Processor coordinates fetch, preprocessing, OCR, text cleanup and output.
// Images are handled one at a time; a failing image never stops the batch.
type Processor struct {
	logger    *slog.Logger
	loader    source.Loader
	engine    ocr.Engine
	sink      output.Sink
	artifacts output.ArtifactWriter
	opts      Options
}

func NewProcessor(logger *slog.Logger, loader source.Loader, engine ocr.Engine, sink output.Sink, opts Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	if opts.Mode == "" {
		opts.Mode = constants.ModeTabular
	}
	if opts.Pipeline == nil {
		def := preprocess.DefaultPipeline()
		opts.Pipeline = &def
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		logger:    logger,
		loader:    loader,
		engine:    engine,
		sink:      sink,
		artifacts: output.ArtifactWriter{Dir: opts.ArtifactDir},
		opts:      opts,
	}
}

func (p *Processor) RunID() uuid.UUID { return p.opts.RunID }

// Diagnostic reports one image that produced no record.
type Diagnostic struct {
	Source string
	Stage  constants.Stage
	Err    error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s]: %v", d.Source, d.Stage, d.Err)
}

// Report summarizes a run.
type Report struct {
	RunID       uuid.UUID
	Total       int
	Processed   int
	Skipped     int // source could not be fetched
	Failed      int // fetched but failed later
	Diagnostics []Diagnostic
	Duration    time.Duration
}

// Run processes sources in order. It returns early only when ctx is done or
// a sink write fails (errors.Is(err, common.ErrBatchFatal)); the report is
// valid up to that point either way.
func (p *Processor) Run(ctx context.Context, sources []string) (Report, error) {
	start := time.Now()
	rep := Report{RunID: p.opts.RunID, Total: len(sources)}
	ctx = common.WithRunID(ctx, p.opts.RunID.String())
	ctx = common.WithLogger(ctx, p.logger)

	p.logger.Info("batch started", "run_id", p.opts.RunID, "sources", len(sources), "mode", p.opts.Mode, "engine", p.engine.Name())

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			rep.Duration = time.Since(start)
			return rep, err
		}

		rec, err := p.ProcessOne(common.WithSource(ctx, src), src, rep.Processed+1)
		if err != nil {
			if errors.Is(err, common.ErrBatchFatal) {
				rep.Duration = time.Since(start)
				p.logger.Error("batch.aborted", "run_id", p.opts.RunID, "source", src, "error", err)
				return rep, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				rep.Duration = time.Since(start)
				return rep, ctxErr
			}
			d := Diagnostic{Source: src, Stage: common.StageOf(err), Err: err}
			rep.Diagnostics = append(rep.Diagnostics, d)
			if d.Stage == constants.StageFetch {
				rep.Skipped++
			} else {
				rep.Failed++
			}
			p.logger.Warn("batch.image.failed", "run_id", p.opts.RunID, "source", src, "stage", d.Stage, "error", err)
			continue
		}
		rep.Processed++
		p.logger.Debug("batch.image.ok", "run_id", p.opts.RunID, "seq", rec.Seq, "source", src, "chars", len(rec.Text))
	}

	rep.Duration = time.Since(start)
	p.logger.Info("batch finished",
		"run_id", p.opts.RunID,
		"processed", rep.Processed,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"elapsed_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

// ProcessOne takes a single source through every stage and writes the record
// with sequence index seq. Per-image failures come back as *common.StageError;
// sink failures are batch-fatal.
func (p *Processor) ProcessOne(ctx context.Context, src string, seq int) (entity.Record, error) {
	logger := common.LoggerFromContext(ctx)

	raw, err := p.loader.Load(ctx, src)
	if err != nil {
		return entity.Record{}, common.NewStageError(constants.StageFetch, src, err)
	}
	raw.Source = src

	img, err := p.opts.Pipeline.Preprocess(raw)
	if err != nil {
		return entity.Record{}, common.NewStageError(constants.StageOrient, src, err)
	}
	logger.Debug("image preprocessed", "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	in := ocr.Input{ID: src, Languages: p.opts.Languages}
	var artifact string
	if p.opts.Mode == constants.ModeArtifact {
		artifact, err = p.artifacts.Save(src, seq, img)
		if err != nil {
			return entity.Record{}, common.NewStageError(constants.StageArtifact, src, err)
		}
		in.Path = artifact
	} else {
		in.Image, err = img.EncodePNG()
		if err != nil {
			return entity.Record{}, common.NewStageError(constants.StageRecognize, src, err)
		}
	}

	ocrCtx, cancel := common.WithTimeout(ctx, p.opts.OCRTimeout)
	res, err := p.engine.Recognize(ocrCtx, in)
	cancel()
	if err != nil {
		if !errors.Is(err, common.ErrRecognition) {
			err = fmt.Errorf("%w: %w", common.ErrRecognition, err)
		}
		return entity.Record{}, common.NewStageError(constants.StageRecognize, src, err)
	}

	rec := entity.Record{
		RunID:       p.opts.RunID,
		Seq:         seq,
		ProcessedAt: p.opts.Now(),
		Source:      src,
		Text:        textclean.Normalize(res.Lines),
		Engine:      p.engine.Name(),
		Artifact:    artifact,
	}
	if err := p.sink.Write(ctx, rec); err != nil {
		return entity.Record{}, common.Fatal("write record", common.NewStageError(constants.StagePersist, src, err))
	}
	logger.Debug("record written", "seq", seq, "ocr_ms", res.Duration.Milliseconds(), "confidence", res.Confidence)
	return rec, nil
}
