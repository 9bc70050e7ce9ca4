package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

const rangeLayout = "20060102T1504"

var summaryHeader = []string{
	"kind", "substation_id", "substation_name", "channel", "metric", "threshold",
	"trailing_hours", "runs", "first_seen", "severity", "artifact",
}

// RangeName labels the artifacts of a batch by its time range.
func RangeName(start, end time.Time) string {
	return start.UTC().Format(rangeLayout) + "_" + end.UTC().Format(rangeLayout)
}

// SummaryFile is the file name of a batch summary.
func SummaryFile(start, end time.Time) string {
	return "alerts_" + RangeName(start, end) + ".csv"
}

// SummaryCSV encodes alerts as CSV. An empty slice yields only the header.
func SummaryCSV(alerts []domain.AlertRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(summaryHeader); err != nil {
		return nil, err
	}
	for _, a := range alerts {
		record := []string{
			string(a.Kind),
			a.EntityID,
			a.EntityName,
			a.Channel,
			formatFloat(a.Metric),
			formatFloat(a.Threshold),
			formatFloat(a.Trailing.Hours()),
			strconv.Itoa(a.Runs),
			a.FirstSeen.UTC().Format(time.RFC3339),
			string(a.Severity),
			a.Artifact,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveSummary writes encoded summary data under dir and returns its path.
func SaveSummary(dir string, start, end time.Time, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, SummaryFile(start, end))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
