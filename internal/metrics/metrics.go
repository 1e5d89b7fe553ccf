package metrics

import (
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	PointsIn     prometheus.Counter
	PointsOut    prometheus.Counter
	QueueDepth   *prometheus.GaugeVec
	Workers      prometheus.Gauge
	StaleReplies prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsreduce_requests_total",
			Help: "Engine requests processed, by kind.",
		}, []string{"kind"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tsreduce_request_duration_seconds",
			Help:    "Time spent computing one engine request.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"kind"}),
		PointsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsreduce_points_in_total",
			Help: "Samples received by the reducer.",
		}),
		PointsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsreduce_points_out_total",
			Help: "Points returned by the reducer.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tsreduce_worker_queue_depth",
			Help: "Requests waiting in a worker queue.",
		}, []string{"worker"}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tsreduce_workers",
			Help: "Attached consumer workers.",
		}),
		StaleReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsreduce_stale_replies_total",
			Help: "Replies discarded because a newer generation was issued.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Requests, m.Duration, m.PointsIn, m.PointsOut, m.QueueDepth, m.Workers, m.StaleReplies,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveReply records one computed reply.
func (m *Metrics) ObserveReply(env contracts.Envelope, reply contracts.Reply, elapsed time.Duration) {
	if m == nil {
		return
	}
	kind := string(reply.Kind)
	m.Requests.WithLabelValues(kind).Inc()
	m.Duration.WithLabelValues(kind).Observe(elapsed.Seconds())

	if env.Reduce != nil && reply.Reduce != nil {
		m.PointsIn.Add(float64(len(env.Reduce.Y)))
		m.PointsOut.Add(float64(reply.Reduce.Len()))
	}
}

// SetQueueDepth records the backlog of one worker.
func (m *Metrics) SetQueueDepth(worker string, depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(worker).Set(float64(depth))
}

// WorkerAttached adjusts the attached worker gauge.
func (m *Metrics) WorkerAttached(delta int) {
	if m == nil {
		return
	}
	m.Workers.Add(float64(delta))
}

// ForgetWorker drops the per-worker series once a worker is gone.
func (m *Metrics) ForgetWorker(worker string) {
	if m == nil {
		return
	}
	m.QueueDepth.DeleteLabelValues(worker)
}

// StaleReply counts a discarded reply.
func (m *Metrics) StaleReply() {
	if m == nil {
		return
	}
	m.StaleReplies.Inc()
}
