package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
)

// Config holds all application configuration
type Config struct {
	Batch      BatchConfig
	Output     OutputConfig
	Preprocess PreprocessConfig
	OCR        OCRConfig
	Fetch      FetchConfig
	Log        LogConfig
}

// BatchConfig describes where sources come from and the output shape.
type BatchConfig struct {
	SourceList string // newline-delimited list of paths/URLs
	SourceDir  string // alternative to SourceList: scan a directory for images
	SkipHidden bool
	Mode       constants.Mode
}

// OutputConfig holds output destinations
type OutputConfig struct {
	Dir       string // must exist; CSV or artifacts are written here
	XLSXPath  string // optional workbook mirror of the records
	LedgerDSN string // optional sqlite path/URI or postgres:// DSN
}

// PreprocessConfig holds the transform parameters applied before OCR
type PreprocessConfig struct {
	BlurRadius     float64
	ContrastFactor float64
	Threshold      bool
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string
	Tesseract   string
	Lang        string
	TessdataDir string
	PSM         int
	OEM         int
	Timeout     time.Duration

	// TSVConfidence runs a second tesseract pass to report mean word confidence.
	TSVConfidence bool
}

// FetchConfig holds HTTP source configuration
type FetchConfig struct {
	Timeout time.Duration
	Retries int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Batch: BatchConfig{
			SourceList: getEnv("OCR_SOURCE_LIST", ""),
			SourceDir:  getEnv("OCR_SOURCE_DIR", ""),
			SkipHidden: getEnvAsBool("OCR_SKIP_HIDDEN", true),
			Mode:       ParseMode(getEnv("OCR_MODE", string(constants.ModeTabular))),
		},
		Output: OutputConfig{
			Dir:       getEnv("OCR_OUTPUT_DIR", ""),
			XLSXPath:  getEnv("XLSX_PATH", ""),
			LedgerDSN: getEnv("LEDGER_DSN", ""),
		},
		Preprocess: PreprocessConfig{
			BlurRadius:     getEnvAsFloat64("OCR_BLUR_RADIUS", 0.0),
			ContrastFactor: getEnvAsFloat64("OCR_CONTRAST_FACTOR", 1.5),
			Threshold:      getEnvAsBool("OCR_THRESHOLD", false),
		},
		OCR: OCRConfig{
			Engine:      getEnv("OCR_ENGINE", "tesseract"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("TESSERACT_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			PSM:         getEnvAsInt("OCR_PSM", 0),
			OEM:         getEnvAsInt("OCR_OEM", 0),
			Timeout:     getEnvAsDuration("OCR_TIMEOUT", 2*time.Minute),

			TSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", false),
		},
		Fetch: FetchConfig{
			Timeout: getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
			Retries: getEnvAsInt("FETCH_RETRIES", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// ParseMode canonicalizes raw; unknown values are kept verbatim so Validate reports them.
func ParseMode(raw string) constants.Mode {
	if m, ok := constants.CanonicalizeMode(raw); ok {
		return m
	}
	return constants.Mode(raw)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the configuration once, before any image is touched.
func (c *Config) Validate() error {
	v := NewValidator()

	switch {
	case c.Batch.SourceList == "" && c.Batch.SourceDir == "":
		v.Field("source_list", c.Batch.SourceList, Required)
	case c.Batch.SourceList != "" && c.Batch.SourceDir != "":
		v.Field("source_dir", c.Batch.SourceDir, func(field string, value interface{}) *ValidationError {
			return &ValidationError{Field: field, Value: value, Message: "cannot be combined with source_list"}
		})
	case c.Batch.SourceList != "":
		v.Field("source_list", c.Batch.SourceList, ExistingFile)
	default:
		v.Field("source_dir", c.Batch.SourceDir, ExistingDir)
	}

	v.Field("mode", string(c.Batch.Mode), OneOf(constants.ModesAsStringSlice()...))
	v.Field("output_dir", c.Output.Dir, Required, ExistingDir)
	v.Field("blur_radius", c.Preprocess.BlurRadius, NonNegative)
	v.Field("contrast_factor", c.Preprocess.ContrastFactor, NonNegative)
	v.Field("ocr_engine", c.OCR.Engine, Required)
	v.Field("ocr_lang", c.OCR.Lang, Required)
	v.Field("fetch_retries", float64(c.Fetch.Retries), NonNegative)
	v.Field("log_format", c.Log.Format, OneOf("json", "text"))

	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
