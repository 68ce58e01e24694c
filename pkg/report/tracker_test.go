package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-freezer/pkg/models"
	"site-freezer/pkg/utils"
)

func TestTracker_RecordAndFinalize(t *testing.T) {
	tracker := NewTracker()
	assert.NotEmpty(t, tracker.RunID())

	tracker.Record(models.PageStatusDone)
	tracker.Record(models.PageStatusDone)
	tracker.Record(models.PageStatusExternal)
	tracker.RecordFailure("http://localhost:8000/broken",
		fmt.Errorf("%w: status 404 for page", utils.ErrUnexpectedStatus))
	tracker.RecordWritten(1024)
	tracker.RecordWritten(512)

	rep := tracker.Finalize([]models.PageRecord{
		{URL: "http://localhost:8000/", Status: models.PageStatusDone},
	})

	assert.Equal(t, tracker.RunID(), rep.RunID)
	assert.Equal(t, 2, rep.Count(models.PageStatusDone))
	assert.Equal(t, 1, rep.Count(models.PageStatusExternal))
	assert.Equal(t, 1, rep.Count(models.PageStatusFailed))
	assert.Equal(t, 2, rep.PagesWritten)
	assert.Equal(t, int64(1536), rep.BytesWritten)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "http://localhost:8000/broken", rep.Failures[0].URL)
	assert.NotEmpty(t, rep.Failures[0].Category)
	require.Len(t, rep.Pages, 1)
	assert.False(t, rep.Partial)
	assert.Empty(t, rep.FatalError)
}

func TestTracker_SetFatalKeepsFirst(t *testing.T) {
	tracker := NewTracker()
	first := errors.New("disk full")
	tracker.SetFatal(first)
	tracker.SetFatal(errors.New("later error"))

	assert.Equal(t, first, tracker.FatalErr())
	rep := tracker.Finalize(nil)
	assert.Equal(t, "disk full", rep.FatalError)
}

func TestTracker_ConcurrentRecording(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Record(models.PageStatusDone)
				tracker.RecordWritten(10)
			}
		}()
	}
	wg.Wait()

	rep := tracker.Finalize(nil)
	assert.Equal(t, 1000, rep.Count(models.PageStatusDone))
	assert.Equal(t, 1000, rep.PagesWritten)
	assert.Equal(t, int64(10000), rep.BytesWritten)
}

func TestReport_Success(t *testing.T) {
	tests := []struct {
		name     string
		report   Report
		strict   bool
		expected bool
	}{
		{name: "CleanRun", report: Report{}, expected: true},
		{name: "FailuresTolerated", report: Report{Failures: []Failure{{URL: "x"}}}, expected: true},
		{name: "FailuresFailStrict", report: Report{Failures: []Failure{{URL: "x"}}}, strict: true, expected: false},
		{name: "PartialFails", report: Report{Partial: true}, expected: false},
		{name: "FatalFails", report: Report{FatalError: "disk full"}, expected: false},
		{name: "FatalFailsEvenWithoutStrict", report: Report{FatalError: "disk full"}, strict: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.report.Success(tt.strict))
		})
	}
}

func TestReport_WriteMarkdown(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(models.PageStatusDone)
	tracker.RecordFailure("http://localhost:8000/bad", errors.New("boom"))
	tracker.MarkPartial()
	rep := tracker.Finalize(nil)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteMarkdown(&buf))

	out := buf.String()
	assert.Contains(t, out, "Freeze Report")
	assert.Contains(t, out, rep.RunID)
	assert.Contains(t, out, "http://localhost:8000/bad")
	assert.True(t, strings.Contains(out, "partial") || strings.Contains(out, "Partial"))
}

func TestReport_ExportJSON(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(models.PageStatusDone)
	rep := tracker.Finalize([]models.PageRecord{{URL: "http://localhost:8000/", Status: models.PageStatusDone}})

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, rep.ExportJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
	assert.Equal(t, 1, decoded.Count(models.PageStatusDone))
	require.Len(t, decoded.Pages, 1)
}

func TestReport_ExportFailuresCSV(t *testing.T) {
	t.Run("WithFailures", func(t *testing.T) {
		tracker := NewTracker()
		tracker.RecordFailure("http://localhost:8000/bad", errors.New("boom"))
		rep := tracker.Finalize(nil)

		path := filepath.Join(t.TempDir(), "failures.csv")
		require.NoError(t, rep.ExportFailuresCSV(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "URL")
		assert.Contains(t, string(data), "http://localhost:8000/bad")
	})

	t.Run("EmptyStillWritesHeader", func(t *testing.T) {
		rep := NewTracker().Finalize(nil)

		path := filepath.Join(t.TempDir(), "failures.csv")
		require.NoError(t, rep.ExportFailuresCSV(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "URL")
	})
}
