package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/polyquant/internal/engine"
)

// JSONWriter writes the full recommendation document to a file under
// the artifact directory, named by run ID.
type JSONWriter struct {
	dir string
	log *logrus.Logger
}

// NewJSONWriter creates a new JSON writer
func NewJSONWriter(dir string, log *logrus.Logger) *JSONWriter {
	return &JSONWriter{dir: dir, log: log}
}

// Write marshals the run and writes it atomically (temp file + rename)
func (w *JSONWriter) Write(ctx context.Context, rec *engine.Recommendation) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}

	path := filepath.Join(w.dir, rec.RunID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"run_id": rec.RunID,
		"path":   path,
	}).Info("JSON artifact written")
	return nil
}

// Path returns where a run's JSON artifact lives
func (w *JSONWriter) Path(runID string) string {
	return filepath.Join(w.dir, runID+".json")
}
