// Package ocr wraps external recognition engines behind a single capability.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
)

// Input is one recognition request. Either Image (encoded PNG/JPEG bytes) or
// Path (an image already on disk) must be set; Path wins when both are.
type Input struct {
	ID        string
	Image     []byte
	Path      string
	Languages []string
}

// Result is the engine's raw output before noise filtering.
type Result struct {
	Lines      []string
	Text       string
	Engine     string
	Language   string
	Duration   time.Duration
	Confidence float32 // 0..1, 0 when the engine does not report one
}

// Engine recognizes text in a single image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Lang      string // default "eng"; several languages joined with '+'

	TessdataDir string

	PSM int // page segmentation mode; 0 leaves the engine default
	OEM int // 1 = LSTM; leave 0 to use default

	EnableTSVConfidence bool
	TempDir             string // where in-memory images are spilled for CLI engines
}

func (c Config) withDefaults() Config {
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Lang == "" {
		c.Lang = "eng"
	}
	return c
}

// Factory builds an engine from configuration.
type Factory func(cfg Config, logger *slog.Logger) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an engine available to New under name. Registering the same
// name twice replaces the earlier factory.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New creates the engine registered under name.
func New(name string, cfg Config, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, common.NewAppError("OCR_ENGINE", fmt.Sprintf("unknown engine %q (available: %v)", name, Names()), common.ErrInvalidInput)
	}
	return f(cfg.withDefaults(), logger)
}

// Names lists registered engines in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
