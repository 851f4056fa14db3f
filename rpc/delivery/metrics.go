package delivery

import (
	"context"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// Metrics holds the counters of one delivery layer.
// Counters are exported in Prometheus format through the VictoriaMetrics set,
// the acknowledgement round-trip time is tracked by a go-metrics timer.
type Metrics struct {
	set      *metrics.Set
	registry gometrics.Registry

	sent         *metrics.Counter
	acked        *metrics.Counter
	timeouts     *metrics.Counter
	anomalies    *metrics.Counter
	decodeErrors *metrics.Counter
	sendErrors   *metrics.Counter

	rtt gometrics.Timer
}

// newMetrics creates the metrics of a layer. pending reports the size of the ack wait table.
func newMetrics(pending func() int) *Metrics {
	m := &Metrics{
		set:      metrics.NewSet(),
		registry: gometrics.NewRegistry(),
		rtt:      gometrics.NewTimer(),
	}

	m.sent = m.set.NewCounter("dring_delivery_sent_total")
	m.acked = m.set.NewCounter("dring_delivery_acked_total")
	m.timeouts = m.set.NewCounter("dring_delivery_timeouts_total")
	m.anomalies = m.set.NewCounter("dring_delivery_anomalies_total")
	m.decodeErrors = m.set.NewCounter("dring_delivery_decode_errors_total")
	m.sendErrors = m.set.NewCounter("dring_delivery_send_errors_total")
	m.set.NewGauge("dring_delivery_pending", func() float64 {
		return float64(pending())
	})

	_ = m.registry.Register("delivery.ack.rtt", m.rtt)

	return m
}

// WritePrometheus writes all counters of the layer in Prometheus text format
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// Registry returns the go-metrics registry holding the round-trip timer
func (m *Metrics) Registry() gometrics.Registry {
	return m.registry
}

// Snapshot is a point-in-time copy of the layer counters
type Snapshot struct {
	Sent         uint64  `json:"sent"`
	Acked        uint64  `json:"acked"`
	Timeouts     uint64  `json:"timeouts"`
	Anomalies    uint64  `json:"anomalies"`
	DecodeErrors uint64  `json:"decode_errors"`
	SendErrors   uint64  `json:"send_errors"`
	RTTCount     int64   `json:"rtt_count"`
	RTTMeanMs    float64 `json:"rtt_mean_ms"`
	RTTP99Ms     float64 `json:"rtt_p99_ms"`
	RTTMaxMs     float64 `json:"rtt_max_ms"`
}

// Snapshot returns the current counter values
func (m *Metrics) Snapshot() Snapshot {
	rtt := m.rtt.Snapshot()
	return Snapshot{
		Sent:         m.sent.Get(),
		Acked:        m.acked.Get(),
		Timeouts:     m.timeouts.Get(),
		Anomalies:    m.anomalies.Get(),
		DecodeErrors: m.decodeErrors.Get(),
		SendErrors:   m.sendErrors.Get(),
		RTTCount:     rtt.Count(),
		RTTMeanMs:    rtt.Mean() / float64(time.Millisecond),
		RTTP99Ms:     rtt.Percentile(0.99) / float64(time.Millisecond),
		RTTMaxMs:     float64(rtt.Max()) / float64(time.Millisecond),
	}
}

// LogStats logs a snapshot every interval until ctx is done
func (m *Metrics) LogStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Snapshot()
			Logger.Infof("sent=%d acked=%d timeouts=%d anomalies=%d rtt(mean=%.2fms p99=%.2fms)",
				s.Sent, s.Acked, s.Timeouts, s.Anomalies, s.RTTMeanMs, s.RTTP99Ms)
		}
	}
}
