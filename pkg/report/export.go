package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// ExportJSON writes the full report, including per-page records, as
// indented JSON.
func (r *Report) ExportJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report to '%s': %w", path, err)
	}
	return nil
}

// ExportFailuresCSV writes the failure list as CSV, one row per failed URL.
// An empty failure list still produces a header-only file.
func (r *Report) ExportFailuresCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating '%s': %w", path, err)
	}
	defer file.Close()

	failures := r.Failures
	if failures == nil {
		failures = []Failure{}
	}
	if err := gocsv.MarshalFile(&failures, file); err != nil {
		return fmt.Errorf("exporting failures to '%s': %w", path, err)
	}
	return nil
}
