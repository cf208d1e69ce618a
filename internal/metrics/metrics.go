package metrics

import (
	"glbackup/internal/backup"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "glbackup"

// Recorder collects per project transfer metrics of one run. The registry is
// private to the run so it can be written out as a node exporter textfile.
type Recorder struct {
	registry *prometheus.Registry

	// transferCount is a Counter vector of project transfers tagged with mode and outcome
	transferCount *prometheus.CounterVec
	// transferLatency keeps track of project transfer durations
	transferLatency *prometheus.HistogramVec
	// lastRunTimestamp captures when the run finished
	lastRunTimestamp prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transferCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_transfers_total",
			Help:      "Count of project transfers by mode and outcome",
		},
			[]string{"mode", "outcome"},
		),
		transferLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "project_transfer_duration_seconds",
			Help:      "Duration of project transfers",
			Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 90, 120, 300, 600},
		},
			[]string{"mode"},
		),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Timestamp of the last finished backup run",
		}),
	}
	r.registry.MustRegister(r.transferCount, r.transferLatency, r.lastRunTimestamp)
	return r
}

func (r *Recorder) RecordTransfer(mode backup.Mode, outcome backup.Outcome, duration time.Duration) {
	r.transferCount.With(prometheus.Labels{
		"mode":    string(mode),
		"outcome": string(outcome),
	}).Inc()
	r.transferLatency.WithLabelValues(string(mode)).Observe(duration.Seconds())
}

func (r *Recorder) RecordRunFinished(at time.Time) {
	r.lastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format, atomically replacing path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
