package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
	"github.com/joseph-ayodele/image-ocr-batch/internal/textclean"
)

// TesseractName is the registry key of the CLI engine.
const TesseractName = "tesseract"

func init() {
	Register(TesseractName, func(cfg Config, logger *slog.Logger) (Engine, error) {
		return NewTesseractEngine(cfg, logger), nil
	})
}

// TesseractEngine shells out to the tesseract binary.
type TesseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg Config, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{cfg: cfg.withDefaults(), runner: ExecRunner{Logger: logger}, logger: logger}
}

// WithRunner swaps the command runner; tests use it to avoid a real binary.
func (e *TesseractEngine) WithRunner(r Runner) *TesseractEngine {
	e.runner = r
	return e
}

func (e *TesseractEngine) Name() string { return TesseractName }

// Recognize runs `tesseract <img> stdout`. In-memory images are written to a
// temporary file first and removed afterwards.
func (e *TesseractEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	start := time.Now()
	path := in.Path
	if path == "" {
		if len(in.Image) == 0 {
			return Result{}, fmt.Errorf("%w: empty input", common.ErrRecognition)
		}
		tmp, cleanup, err := e.spill(in.Image)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", common.ErrRecognition, err)
		}
		defer cleanup()
		path = tmp
	}

	lang := e.cfg.Lang
	if len(in.Languages) > 0 {
		lang = strings.Join(in.Languages, "+")
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.args(path, lang)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
		return Result{}, fmt.Errorf("%w: tesseract: %w (%s)", common.ErrRecognition, err, strings.TrimSpace(truncate(string(errb), 512)))
	}

	text := string(out)
	res := Result{
		Lines:    textclean.SplitLines(strings.TrimRight(text, "\f\n")),
		Text:     text,
		Engine:   TesseractName,
		Language: lang,
	}

	if e.cfg.EnableTSVConfidence {
		conf, err := e.tsvConfidence(ctx, path, lang)
		if err != nil {
			e.logger.Warn("ocr.confidence.failed", "id", in.ID, "error", err)
		} else {
			res.Confidence = conf
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

func (e *TesseractEngine) args(path, lang string) []string {
	args := []string{path, "stdout", "-l", lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *TesseractEngine) spill(data []byte) (string, func(), error) {
	f, err := os.CreateTemp(e.cfg.TempDir, "imgocr-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("create temp image: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp image: %w", err)
	}
	return f.Name(), cleanup, nil
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *TesseractEngine) tsvConfidence(ctx context.Context, path, lang string) (float32, error) {
	args := append(e.args(path, lang), "tsv")
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanConfidence(string(out)), nil
}

func meanConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 { // header
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		conf := strings.TrimSpace(cols[10])
		if conf == "" || conf == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(conf, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
