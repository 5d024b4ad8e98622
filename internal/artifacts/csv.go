package artifacts

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/polyquant/internal/engine"
)

// CSVWriter writes the portfolio table to a CSV file under the
// artifact directory, named by run ID.
type CSVWriter struct {
	dir string
	log *logrus.Logger
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter(dir string, log *logrus.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, log: log}
}

// Write renders one row per portfolio position
func (w *CSVWriter) Write(ctx context.Context, rec *engine.Recommendation) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(w.dir, rec.RunID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{"token_id", "question", "action", "correlation", "signal_strength", "n_data_points", "volume_usd", "weight", "weight_pct"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, item := range rec.Portfolio {
		corr := ""
		if item.Correlation != nil {
			corr = strconv.FormatFloat(*item.Correlation, 'f', 6, 64)
		}
		row := []string{
			item.TokenID,
			item.Question,
			item.Action,
			corr,
			strconv.FormatFloat(item.SignalStrength, 'f', 6, 64),
			strconv.Itoa(item.NDataPoints),
			strconv.FormatFloat(item.VolumeUSD, 'f', 2, 64),
			strconv.FormatFloat(item.Weight, 'f', 6, 64),
			strconv.FormatFloat(item.WeightPct, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"run_id": rec.RunID,
		"path":   path,
		"rows":   len(rec.Portfolio),
	}).Info("CSV artifact written")
	return nil
}
