package logging

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the logger emits. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	records      *prometheus.CounterVec
	formatErrors prometheus.Counter
}

// NewMetrics creates the logger counters and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "personaldata",
			Name:      "log_records_total",
			Help:      "Log records written after redaction, by level.",
		}, []string{"level"}),
		formatErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "personaldata",
			Name:      "log_format_errors_total",
			Help:      "Log records that could not be rendered through the base template.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.records, m.formatErrors)
	}
	return m
}

func (m *Metrics) recordWritten(level string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(strings.ToLower(level)).Inc()
}

func (m *Metrics) formatFailed() {
	if m == nil {
		return
	}
	m.formatErrors.Inc()
}
