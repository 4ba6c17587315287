package submission

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the submission path. A nil *Metrics records nothing.
type Metrics struct {
	submissions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	writeDuration prometheus.Histogram
	resets        prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hunt",
			Subsystem: "submissions",
			Name:      "accepted_total",
			Help:      "Submissions committed to the ledger, by backend and correctness.",
		}, []string{"backend", "correct"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hunt",
			Subsystem: "submissions",
			Name:      "rejected_total",
			Help:      "Submissions rejected before or during commit, by reason.",
		}, []string{"reason"}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hunt",
			Subsystem: "ledger",
			Name:      "write_duration_seconds",
			Help:      "Time spent storing the photo and appending the record.",
			Buckets:   prometheus.DefBuckets,
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hunt",
			Subsystem: "ledger",
			Name:      "resets_total",
			Help:      "Full ledger resets.",
		}),
	}
	reg.MustRegister(m.submissions, m.rejections, m.writeDuration, m.resets)
	return m
}

func (m *Metrics) accepted(backend string, correct bool) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.submissions.WithLabelValues(backend, label).Inc()
}

func (m *Metrics) rejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeWrite(start time.Time) {
	if m == nil {
		return
	}
	m.writeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

// rejectReason maps an error to a low-cardinality label.
func rejectReason(err error) string {
	switch err.(type) {
	case *ValidationError:
		return "validation"
	case *DecodeError:
		return "decode"
	case *PayloadTooLargeError:
		return "too_large"
	case *StorageError:
		return "storage"
	default:
		return "other"
	}
}
