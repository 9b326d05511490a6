package viewstate

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Slice labels used in metrics.
const (
	sliceSettings     = "settings"
	sliceColumnWidths = "column_widths"
)

// Metrics holds the Prometheus metrics of list views. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Writes        *prometheus.CounterVec
	SkippedWrites *prometheus.CounterVec
	Coalesced     *prometheus.CounterVec
	DroppedFields *prometheus.CounterVec
	StoreFailures *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewstate_settings_writes_total",
		Help: "Total settings writes sent to the store",
	}, []string{"view_kind", "slice"})

	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewstate_settings_skipped_writes_total",
		Help: "Column widths writes skipped because nothing changed since the last write",
	}, []string{"view_kind"})

	coalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewstate_column_width_updates_coalesced_total",
		Help: "Column widths updates merged into a pending debounced write",
	}, []string{"view_kind"})

	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewstate_settings_dropped_fields_total",
		Help: "Stored settings fields dropped on load because they failed validation",
	}, []string{"view_kind", "field"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewstate_store_failures_total",
		Help: "Settings store operations that failed",
	}, []string{"view_kind", "op"})

	reg.MustRegister(writes, skipped, coalesced, dropped, failures)

	return &Metrics{
		Writes:        writes,
		SkippedWrites: skipped,
		Coalesced:     coalesced,
		DroppedFields: dropped,
		StoreFailures: failures,
	}
}

func (m *Metrics) write(kind, slice string) {
	if m != nil {
		m.Writes.WithLabelValues(kind, slice).Inc()
	}
}

func (m *Metrics) skippedWrite(kind string) {
	if m != nil {
		m.SkippedWrites.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) coalesced(kind string) {
	if m != nil {
		m.Coalesced.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) droppedField(kind, field string) {
	if m != nil {
		m.DroppedFields.WithLabelValues(kind, field).Inc()
	}
}

func (m *Metrics) storeFailure(kind, op string) {
	if m != nil {
		m.StoreFailures.WithLabelValues(kind, op).Inc()
	}
}
