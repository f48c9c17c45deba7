package batch

import (
	"time"

	"github.com/agentic-research/seedgraph/internal/record"
)

// Mode names the terminal step of a build cycle.
type Mode string

const (
	ModePersist Mode = "persist"
	ModeMock    Mode = "mock"
)

// Recorder receives build-cycle observations. internal/metrics provides a
// Prometheus implementation.
type Recorder interface {
	ObserveCycle(mode Mode, records int, err error, elapsed time.Duration)
	ObserveShelved(t record.EntityType)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCycle(Mode, int, error, time.Duration) {}
func (nopRecorder) ObserveShelved(record.EntityType)             {}
