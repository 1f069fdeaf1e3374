//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
	"github.com/joseph-ayodele/image-ocr-batch/internal/textclean"
)

// GosseractName is the registry key of the in-process engine.
const GosseractName = "gosseract"

func init() {
	Register(GosseractName, func(cfg Config, logger *slog.Logger) (Engine, error) {
		return NewGosseractEngine(cfg, logger), nil
	})
}

// gosseractClient is the part of *gosseract.Client the engine drives.
type gosseractClient interface {
	Close() error
	SetImage(path string) error
	SetImageFromBytes(data []byte) error
	SetLanguage(langs ...string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	Text() (string, error)
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
}

func newGosseractClient(tessdata string) gosseractClient {
	c := gosseract.NewClient()
	if tessdata != "" {
		c.TessdataPrefix = tessdata
	}
	return c
}

// GosseractEngine links libtesseract through cgo. A fresh client is used per
// image so no state leaks between recognitions.
type GosseractEngine struct {
	cfg           Config
	clientFactory func(tessdata string) gosseractClient
	logger        *slog.Logger
}

func NewGosseractEngine(cfg Config, logger *slog.Logger) *GosseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &GosseractEngine{cfg: cfg.withDefaults(), clientFactory: newGosseractClient, logger: logger}
}

func (e *GosseractEngine) Name() string { return GosseractName }

func (e *GosseractEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", common.ErrRecognition, err)
	}
	start := time.Now()

	c := e.clientFactory(e.cfg.TessdataDir)
	defer c.Close()

	if in.Path != "" {
		if err := c.SetImage(in.Path); err != nil {
			return Result{}, fmt.Errorf("%w: set image: %w", common.ErrRecognition, err)
		}
	} else {
		if err := c.SetImageFromBytes(in.Image); err != nil {
			return Result{}, fmt.Errorf("%w: set image: %w", common.ErrRecognition, err)
		}
	}

	langs := in.Languages
	if len(langs) == 0 {
		langs = strings.Split(e.cfg.Lang, "+")
	}
	if err := c.SetLanguage(langs...); err != nil {
		return Result{}, fmt.Errorf("%w: set languages: %w", common.ErrRecognition, err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return Result{}, fmt.Errorf("%w: set psm: %w", common.ErrRecognition, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("%w: recognize text: %w", common.ErrRecognition, err)
	}

	res := Result{
		Lines:    textclean.SplitLines(strings.TrimSpace(text)),
		Text:     text,
		Engine:   GosseractName,
		Language: strings.Join(langs, "+"),
	}
	if e.cfg.EnableTSVConfidence {
		res.Confidence = wordConfidence(c)
	}
	res.Duration = time.Since(start)
	return res, nil
}

func wordConfidence(c gosseractClient) float32 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return float32(sum / float64(len(boxes)) / 100.0)
}
