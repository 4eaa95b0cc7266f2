// ABOUTME: Prometheus metrics for playback, decoding and the audio render path
// ABOUTME: Registered on a private registry exposed by the remote /metrics endpoint
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Video metrics
	FramesRendered prometheus.Counter
	FramesSkipped  prometheus.Counter
	DecodeErrors   *prometheus.CounterVec

	// Transport metrics
	Commands *prometheus.CounterVec
	Position prometheus.Gauge

	// Audio metrics, updated from the device callback
	AudioFills       prometheus.Counter
	AudioSilentFills prometheus.Counter
	AudioUnderruns   prometheus.Counter
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesRendered: factory.NewCounter(prometheus.CounterOpts{
			Name: "termvid_frames_rendered_total",
			Help: "Video frames drawn to the terminal",
		}),
		FramesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "termvid_frames_skipped_total",
			Help: "Video frames superseded before display to catch up with the clock",
		}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termvid_decode_errors_total",
			Help: "Transient decode failures by stream",
		}, []string{"stream"}),

		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termvid_commands_total",
			Help: "Transport commands applied by the controller",
		}, []string{"kind"}),
		Position: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termvid_position_seconds",
			Help: "Current media position",
		}),

		AudioFills: factory.NewCounter(prometheus.CounterOpts{
			Name: "termvid_audio_fills_total",
			Help: "Audio device buffer fills",
		}),
		AudioSilentFills: factory.NewCounter(prometheus.CounterOpts{
			Name: "termvid_audio_silent_fills_total",
			Help: "Audio fills served entirely as silence while muted",
		}),
		AudioUnderruns: factory.NewCounter(prometheus.CounterOpts{
			Name: "termvid_audio_underruns_total",
			Help: "Audio fills cut short by end of stream or a decode failure",
		}),
	}
}

// Registry returns the registry holding these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
