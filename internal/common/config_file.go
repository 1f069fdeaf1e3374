package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
)

// FileConfig is the on-disk JSON shape. Absent keys leave the current value untouched.
type FileConfig struct {
	SourceList *string `json:"source_list,omitempty"`
	SourceDir  *string `json:"source_dir,omitempty"`
	Mode       *string `json:"mode,omitempty"`
	OutputDir  *string `json:"output_dir,omitempty"`
	XLSXPath   *string `json:"xlsx_path,omitempty"`
	LedgerDSN  *string `json:"ledger_dsn,omitempty"`

	Preprocess *struct {
		BlurRadius     *float64 `json:"blur_radius,omitempty"`
		ContrastFactor *float64 `json:"contrast_factor,omitempty"`
		Threshold      *bool    `json:"threshold,omitempty"`
	} `json:"preprocess,omitempty"`

	OCR *struct {
		Engine      *string `json:"engine,omitempty"`
		Tesseract   *string `json:"tesseract_bin,omitempty"`
		Lang        *string `json:"lang,omitempty"`
		TessdataDir *string `json:"tessdata_dir,omitempty"`
		PSM         *int    `json:"psm,omitempty"`
		OEM         *int    `json:"oem,omitempty"`
		Timeout     *string `json:"timeout,omitempty"`
	} `json:"ocr,omitempty"`

	Fetch *struct {
		Timeout *string `json:"timeout,omitempty"`
		Retries *int    `json:"retries,omitempty"`
	} `json:"fetch,omitempty"`
}

// BuildConfigJSONSchema returns the JSON-Schema used to validate config files.
func BuildConfigJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	nonEmpty := map[string]any{"type": "string", "minLength": 1}
	duration := map[string]any{"type": "string", "pattern": `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"source_list": str,
			"source_dir":  str,
			"mode":        map[string]any{"type": "string", "enum": constants.ModesAsStringSlice()},
			"output_dir":  nonEmpty,
			"xlsx_path":   str,
			"ledger_dsn":  str,
			"preprocess": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"blur_radius":     map[string]any{"type": "number", "minimum": 0},
					"contrast_factor": map[string]any{"type": "number", "minimum": 0},
					"threshold":       map[string]any{"type": "boolean"},
				},
			},
			"ocr": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"engine":        nonEmpty,
					"tesseract_bin": nonEmpty,
					"lang":          nonEmpty,
					"tessdata_dir":  str,
					"psm":           map[string]any{"type": "integer", "minimum": 0, "maximum": 13},
					"oem":           map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
					"timeout":       duration,
				},
			},
			"fetch": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"timeout": duration,
					"retries": map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
				},
			},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}

// ApplyConfigFile validates the JSON file at path and overlays it onto cfg.
func ApplyConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := ValidateJSONAgainstSchema(BuildConfigJSONSchema(), data); err != nil {
		return NewAppError("CONFIG_ERROR", path, fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}
	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return NewAppError("CONFIG_ERROR", "decode config file", err)
	}
	return fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) error {
	setStr(&cfg.Batch.SourceList, fc.SourceList)
	setStr(&cfg.Batch.SourceDir, fc.SourceDir)
	setStr(&cfg.Output.Dir, fc.OutputDir)
	setStr(&cfg.Output.XLSXPath, fc.XLSXPath)
	setStr(&cfg.Output.LedgerDSN, fc.LedgerDSN)
	if fc.Mode != nil {
		cfg.Batch.Mode = ParseMode(*fc.Mode)
	}

	if p := fc.Preprocess; p != nil {
		if p.BlurRadius != nil {
			cfg.Preprocess.BlurRadius = *p.BlurRadius
		}
		if p.ContrastFactor != nil {
			cfg.Preprocess.ContrastFactor = *p.ContrastFactor
		}
		if p.Threshold != nil {
			cfg.Preprocess.Threshold = *p.Threshold
		}
	}

	if o := fc.OCR; o != nil {
		setStr(&cfg.OCR.Engine, o.Engine)
		setStr(&cfg.OCR.Tesseract, o.Tesseract)
		setStr(&cfg.OCR.Lang, o.Lang)
		setStr(&cfg.OCR.TessdataDir, o.TessdataDir)
		if o.PSM != nil {
			cfg.OCR.PSM = *o.PSM
		}
		if o.OEM != nil {
			cfg.OCR.OEM = *o.OEM
		}
		if err := setDuration(&cfg.OCR.Timeout, o.Timeout); err != nil {
			return NewAppError("CONFIG_ERROR", "ocr.timeout", err)
		}
	}

	if f := fc.Fetch; f != nil {
		if f.Retries != nil {
			cfg.Fetch.Retries = *f.Retries
		}
		if err := setDuration(&cfg.Fetch.Timeout, f.Timeout); err != nil {
			return NewAppError("CONFIG_ERROR", "fetch.timeout", err)
		}
	}
	return nil
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
