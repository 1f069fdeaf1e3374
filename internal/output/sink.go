// Package output persists result records and per-image artifacts.
package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/image-ocr-batch/internal/entity"
)

// Sink receives each record as soon as it is produced. Implementations
// persist it before Write returns.
type Sink interface {
	Write(ctx context.Context, rec entity.Record) error
	Close() error
}

// MultiSink fans a record out to every sink in order and stops at the first failure.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, rec entity.Record) error {
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			return fmt.Errorf("%T: %w", s, err)
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
