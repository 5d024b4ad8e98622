package artifacts

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/polyquant/internal/engine"
)

// LogWriter summarizes the run to the logger
type LogWriter struct {
	log *logrus.Logger
}

// NewLogWriter creates a new log writer
func NewLogWriter(log *logrus.Logger) *LogWriter {
	return &LogWriter{log: log}
}

// Write logs the run summary
func (w *LogWriter) Write(ctx context.Context, rec *engine.Recommendation) error {
	fields := logrus.Fields{
		"run_id":    rec.RunID,
		"thesis":    rec.Thesis,
		"positions": len(rec.Portfolio),
		"signals":   len(rec.Signals),
	}
	if rec.Anchor != nil {
		fields["anchor"] = rec.Anchor.Market.ConditionID
		fields["anchor_token"] = rec.Anchor.TokenChoice
	}
	if rec.Note != "" {
		fields["note"] = rec.Note
	}
	w.log.WithFields(fields).Info("Recommendation artifact")
	return nil
}
