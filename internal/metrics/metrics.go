// Package metrics records render-loop and interaction metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder interface {
	FrameRendered()
	FrameSkipped(reason string)
	ObservePick(d time.Duration, hit bool)
	ObserveRebuild(kind string, d time.Duration)
	SetVisible(n int)
	SessionOpened()
	SessionClosed()
}

type Nop struct{}

func (Nop) FrameRendered()                       {}
func (Nop) FrameSkipped(string)                  {}
func (Nop) ObservePick(time.Duration, bool)      {}
func (Nop) ObserveRebuild(string, time.Duration) {}
func (Nop) SetVisible(int)                       {}
func (Nop) SessionOpened()                       {}
func (Nop) SessionClosed()                       {}

// PrometheusRecorder keeps its collectors on a private registry so several
// views (and tests) can coexist in one process.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	framesTotal     prometheus.Counter
	framesSkipped   *prometheus.CounterVec
	pickDuration    *prometheus.HistogramVec
	rebuildDuration *prometheus.HistogramVec
	visible         prometheus.Gauge
	sessions        prometheus.Gauge
}

func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "decisionmesh_frames_total",
			Help: "Frames rendered by the view loop",
		}),
		framesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decisionmesh_frames_skipped_total",
			Help: "Frames skipped, by reason",
		}, []string{"reason"}),
		pickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "decisionmesh_pick_duration_seconds",
			Help:    "Pointer pick resolution latency",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"result"}),
		rebuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "decisionmesh_scene_rebuild_duration_seconds",
			Help:    "Scene rebuild latency, by kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decisionmesh_visible_entities",
			Help: "Entities visible under the active filter",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decisionmesh_ws_sessions",
			Help: "Open live view sessions",
		}),
	}
	r.registry.MustRegister(
		r.framesTotal,
		r.framesSkipped,
		r.pickDuration,
		r.rebuildDuration,
		r.visible,
		r.sessions,
	)
	return r
}

func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *PrometheusRecorder) FrameRendered() {
	r.framesTotal.Inc()
}

func (r *PrometheusRecorder) FrameSkipped(reason string) {
	r.framesSkipped.WithLabelValues(reason).Inc()
}

func (r *PrometheusRecorder) ObservePick(d time.Duration, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.pickDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (r *PrometheusRecorder) ObserveRebuild(kind string, d time.Duration) {
	r.rebuildDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (r *PrometheusRecorder) SetVisible(n int) {
	r.visible.Set(float64(n))
}

func (r *PrometheusRecorder) SessionOpened() {
	r.sessions.Inc()
}

func (r *PrometheusRecorder) SessionClosed() {
	r.sessions.Dec()
}
