package artifacts

import (
	"context"
	"fmt"

	"github.com/liamashdown/polyquant/internal/engine"
)

// MultiWriter fans a run out to multiple writers
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a new multi-writer
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{
		writers: writers,
	}
}

// Write sends the run to all configured writers
func (w *MultiWriter) Write(ctx context.Context, rec *engine.Recommendation) error {
	var errs []error
	for i, writer := range w.writers {
		if err := writer.Write(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("writer %d: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multi-writer errors: %v", errs)
	}

	return nil
}
