package common

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
)

// Per-image failures. These never abort a batch.
var (
	ErrDecode           = errors.New("image could not be decoded")
	ErrNoImage          = errors.New("no image to transform")
	ErrInvalidParameter = errors.New("invalid transform parameter")
	ErrRecognition      = errors.New("recognition failed")
	ErrSourceFetch      = errors.New("source could not be fetched")
)

// ErrBatchFatal marks setup or output failures that stop the whole run.
var ErrBatchFatal = errors.New("batch aborted")

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// StageError ties a per-image failure to the stage and source that produced it.
type StageError struct {
	Stage  constants.Stage
	Source string
	Err    error
}

func (e *StageError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError returns nil when err is nil.
func NewStageError(stage constants.Stage, source string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) && se.Source == "" {
		return &StageError{Stage: se.Stage, Source: source, Err: se.Err}
	}
	if se != nil {
		return err
	}
	return &StageError{Stage: stage, Source: source, Err: err}
}

// StageOf extracts the failing stage, or "" when err carries none.
func StageOf(err error) constants.Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Fatal wraps err so errors.Is(err, ErrBatchFatal) holds.
func Fatal(message string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrBatchFatal, message)
	}
	return fmt.Errorf("%w: %s: %w", ErrBatchFatal, message, err)
}
