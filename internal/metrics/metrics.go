// Package metrics exports build-cycle observations as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/agentic-research/seedgraph/internal/batch"
	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seedgraph"

// Recorder implements batch.Recorder on top of Prometheus collectors.
type Recorder struct {
	cycles   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  *prometheus.CounterVec
	shelved  *prometheus.CounterVec
}

var _ batch.Recorder = (*Recorder)(nil)

// New registers the collectors with reg. Pass prometheus.NewRegistry() for an
// isolated set.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Build cycles by terminal mode and outcome.",
		}, []string{"mode", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a build cycle.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records handed to a successful build cycle.",
		}, []string{"mode"}),
		shelved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shelved_fields_total",
			Help:      "Field values shelved instead of written directly.",
		}, []string{"entity"}),
	}
	for _, c := range []prometheus.Collector{r.cycles, r.duration, r.records, r.shelved} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObserveCycle(mode batch.Mode, records int, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.cycles.WithLabelValues(string(mode), status).Inc()
	r.duration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	if err == nil {
		r.records.WithLabelValues(string(mode)).Add(float64(records))
	}
}

func (r *Recorder) ObserveShelved(t record.EntityType) {
	r.shelved.WithLabelValues(string(t)).Inc()
}

// WriteFile dumps every metric gathered by g to path in the text exposition
// format.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
