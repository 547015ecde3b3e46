package progress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestReporter() (*LogReporter, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewLogReporter(zap.New(core), false), logs
}

func TestLogReporter_SummaryNoErrors(t *testing.T) {
	r, logs := newTestReporter()
	r.Summary(Summary{Source: "demo", TargetRoot: "/tmp/demo", Listed: 3, Completed: 3})

	found := logs.FilterMessage("source completed")
	assert.Equal(t, 1, found.Len())
}

func TestLogReporter_SummaryWithErrorsLogsErrorLevel(t *testing.T) {
	r, logs := newTestReporter()
	r.Summary(Summary{Source: "demo", Errs: []error{errors.New("boom")}})

	found := logs.FilterMessage("source completed with errors")
	assert.Equal(t, 1, found.Len())
	assert.Equal(t, zap.ErrorLevel, found.All()[0].Level)
}

func TestLogReporter_ConflictLogsWarning(t *testing.T) {
	r, logs := newTestReporter()
	r.Conflict("A/x.pdf")
	found := logs.FilterMessage("conflicting checksums for the same path")
	assert.Equal(t, 1, found.Len())
}

func TestLogReporter_SummaryTruncatesConflictSample(t *testing.T) {
	r, logs := newTestReporter()
	conflicts := make([]string, 15)
	for i := range conflicts {
		conflicts[i] = "path"
	}
	r.Summary(Summary{Source: "demo", Conflicts: conflicts})

	found := logs.FilterMessage("source completed")
	entry := found.All()[0]
	for _, f := range entry.Context {
		if f.Key == "conflicts_total" {
			assert.EqualValues(t, 15, f.Integer)
		}
	}
}
