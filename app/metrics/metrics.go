package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dtube_pinner"

const (
	StageFetch = "fetch"
	StagePin   = "pin"
)

// Recorder holds the pinner's Prometheus collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	cyclesTotal   prometheus.Counter
	cycleDuration prometheus.Histogram
	fetchesTotal  *prometheus.CounterVec
	postsTotal    *prometheus.CounterVec
	pinsTotal     *prometheus.CounterVec
	inflight      *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
	}

	r.cyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Completed polling cycles",
	})

	r.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one fetch, extract and pin cycle",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	r.fetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetches_total",
		Help:      "Feed fetches by result",
	}, []string{"result"})

	r.postsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_total",
		Help:      "Fetched posts by extraction result",
	}, []string{"result"})

	r.pinsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pins_total",
		Help:      "Pin requests by result",
	}, []string{"result"})

	r.inflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inflight",
		Help:      "Outstanding network operations by stage",
	}, []string{"stage"})

	r.registry.MustRegister(
		r.cyclesTotal,
		r.cycleDuration,
		r.fetchesTotal,
		r.postsTotal,
		r.pinsTotal,
		r.inflight,
	)

	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) CycleDone(d time.Duration) {
	r.cyclesTotal.Inc()
	r.cycleDuration.Observe(d.Seconds())
}

func (r *Recorder) Fetch(err error) {
	r.fetchesTotal.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) Post(res string) {
	r.postsTotal.WithLabelValues(res).Inc()
}

func (r *Recorder) Pin(err error) {
	r.pinsTotal.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) Inflight(stage string, delta float64) {
	r.inflight.WithLabelValues(stage).Add(delta)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
