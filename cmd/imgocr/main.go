package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
	"github.com/joseph-ayodele/image-ocr-batch/internal/core"
	"github.com/joseph-ayodele/image-ocr-batch/internal/ocr"
	"github.com/joseph-ayodele/image-ocr-batch/internal/output"
	"github.com/joseph-ayodele/image-ocr-batch/internal/preprocess"
	"github.com/joseph-ayodele/image-ocr-batch/internal/source"
)

var (
	configPath string
	listPath   string
	sourceDir  string
	outDir     string
	mode       string
	blur       float64
	contrast   float64
	threshold  bool
	engineName string
	lang       string
	ocrTimeout time.Duration
	xlsxPath   string
	ledgerDSN  string
	logLevel   string
	logFormat  string
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	root := &cobra.Command{
		Use:   "imgocr",
		Short: "Batch image-to-text: preprocess images, run OCR, write cleaned records",
		Long: `imgocr reads a list of image sources (local paths or http(s) URLs, one per line)
or scans a directory, normalizes each image (orientation, grayscale, blur,
contrast, optional threshold), runs OCR and writes the cleaned text.

Modes:
  tabular   one OCR_Results_YYYYMMDD_HHMMSS.csv (pipe-delimited) per run
  artifact  <name>.png (normalized image) and <name>.txt per source

Settings come from the environment (OCR_*, TESSERACT_*, FETCH_*, LOG_*),
then --config (JSON), then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	f := root.Flags()
	f.StringVar(&configPath, "config", "", "JSON config file")
	f.StringVarP(&listPath, "list", "l", "", "newline-delimited source list")
	f.StringVarP(&sourceDir, "dir", "d", "", "directory to scan for images instead of a list")
	f.StringVarP(&outDir, "out", "o", "", "existing output directory")
	f.StringVarP(&mode, "mode", "m", "", "output mode: tabular | artifact")
	f.Float64Var(&blur, "blur", 0, "gaussian blur radius (0 disables)")
	f.Float64Var(&contrast, "contrast", 0, "contrast factor (1.0 = unchanged)")
	f.BoolVar(&threshold, "threshold", false, "binarize after contrast")
	f.StringVar(&engineName, "engine", "", fmt.Sprintf("ocr engine %v", ocr.Names()))
	f.StringVar(&lang, "lang", "", "ocr language(s), e.g. eng or eng+deu")
	f.DurationVar(&ocrTimeout, "ocr-timeout", 0, "per-image OCR timeout (0 = none)")
	f.StringVar(&xlsxPath, "xlsx", "", "also mirror records into this workbook")
	f.StringVar(&ledgerDSN, "ledger", "", "also store records in sqlite (path) or postgres:// ledger")
	f.StringVar(&logLevel, "log-level", "", "debug | info | warn | error")
	f.StringVar(&logFormat, "log-format", "", "json | text")

	if err := root.Execute(); err != nil {
		printError("Error: %v\n", err)
		if errors.Is(err, common.ErrInvalidInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*common.Config, error) {
	cfg := common.LoadConfig()
	if configPath != "" {
		if err := common.ApplyConfigFile(cfg, configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("list", func() { cfg.Batch.SourceList = listPath })
	set("dir", func() { cfg.Batch.SourceDir = sourceDir })
	set("out", func() { cfg.Output.Dir = outDir })
	set("mode", func() { cfg.Batch.Mode = common.ParseMode(mode) })
	set("blur", func() { cfg.Preprocess.BlurRadius = blur })
	set("contrast", func() { cfg.Preprocess.ContrastFactor = contrast })
	set("threshold", func() { cfg.Preprocess.Threshold = threshold })
	set("engine", func() { cfg.OCR.Engine = engineName })
	set("lang", func() { cfg.OCR.Lang = lang })
	set("ocr-timeout", func() { cfg.OCR.Timeout = ocrTimeout })
	set("xlsx", func() { cfg.Output.XLSXPath = xlsxPath })
	set("ledger", func() { cfg.Output.LedgerDSN = ledgerDSN })
	set("log-level", func() { cfg.Log.Level = logLevel })
	set("log-format", func() { cfg.Log.Format = logFormat })

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := collectSources(cfg, logger)
	if err != nil {
		return err
	}

	engine, err := ocr.New(cfg.OCR.Engine, ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,

		EnableTSVConfidence: cfg.OCR.TSVConfidence,
	}, logger)
	if err != nil {
		return err
	}

	started := time.Now()
	sink, err := openSinks(ctx, cfg, started, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("failed to close outputs", "error", err)
		}
	}()

	pipeline := preprocess.Pipeline{
		BlurRadius:     cfg.Preprocess.BlurRadius,
		ContrastFactor: cfg.Preprocess.ContrastFactor,
		Threshold:      cfg.Preprocess.Threshold,
	}
	loader := source.NewLoader(source.LoaderOptions{
		Timeout: cfg.Fetch.Timeout,
		Retries: cfg.Fetch.Retries,
	}, logger)

	proc := core.NewProcessor(logger, loader, engine, sink, core.Options{
		Mode:        cfg.Batch.Mode,
		Pipeline:    &pipeline,
		OCRTimeout:  cfg.OCR.Timeout,
		ArtifactDir: cfg.Output.Dir,
	})

	rep, err := proc.Run(ctx, sources)
	for _, d := range rep.Diagnostics {
		printError("skipped %s\n", d)
	}
	fmt.Printf("run %s: %d/%d processed, %d skipped, %d failed in %s\n",
		rep.RunID, rep.Processed, rep.Total, rep.Skipped, rep.Failed, rep.Duration.Round(time.Millisecond))
	return err
}

func collectSources(cfg *common.Config, logger *slog.Logger) ([]string, error) {
	if cfg.Batch.SourceDir != "" {
		paths, stats, err := source.ListDirectory(cfg.Batch.SourceDir, cfg.Batch.SkipHidden)
		if err != nil {
			return nil, err
		}
		logger.Info("directory scanned", "dir", cfg.Batch.SourceDir, "scanned", stats.Scanned, "matched", stats.Matched, "skipped", stats.Skipped)
		return paths, nil
	}
	return source.ReadList(cfg.Batch.SourceList)
}

// openSinks builds the primary sink for the mode plus any optional mirrors.
// Failing to open any of them aborts the run before an image is read.
func openSinks(ctx context.Context, cfg *common.Config, started time.Time, logger *slog.Logger) (output.MultiSink, error) {
	var sinks output.MultiSink
	fail := func(msg string, err error) (output.MultiSink, error) {
		_ = sinks.Close()
		return nil, common.Fatal(msg, err)
	}

	switch cfg.Batch.Mode {
	case constants.ModeArtifact:
		sinks = append(sinks, output.TextSink{Dir: cfg.Output.Dir})
	default:
		csvSink, err := output.NewCSVSink(cfg.Output.Dir, started)
		if err != nil {
			return fail("open results file", err)
		}
		logger.Info("writing results", "path", csvSink.Path())
		sinks = append(sinks, csvSink)
	}

	if cfg.Output.XLSXPath != "" {
		x, err := output.NewXLSXSink(cfg.Output.XLSXPath, logger)
		if err != nil {
			return fail("open workbook", err)
		}
		sinks = append(sinks, x)
	}
	if cfg.Output.LedgerDSN != "" {
		l, err := output.OpenLedger(ctx, output.LedgerConfig{DSN: cfg.Output.LedgerDSN, MaxConns: 4}, logger)
		if err != nil {
			return fail("open ledger", err)
		}
		sinks = append(sinks, l)
	}
	return sinks, nil
}
