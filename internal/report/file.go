package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/raglens/raglens/pkg/types"
)

// NewRunReport stamps a fresh run report with a unique id.
func NewRunReport(dataset string, degraded bool, start time.Time, results []types.BenchmarkResult) *types.RunReport {
	return &types.RunReport{
		RunID:     uuid.New().String(),
		StartTime: start,
		EndTime:   time.Now(),
		Dataset:   dataset,
		Degraded:  degraded,
		Results:   results,
	}
}

// WriteJSON writes a report (benchmark or recall) to path. The write
// goes through a temp file and rename so a crash never leaves a
// half-written results file.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close report: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}
