package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ChannelResultOK      = "ok"
	ChannelResultFailed  = "failed"
	ChannelResultTimeout = "timeout"
)

// FanoutMetrics counts side-channel outcomes so a silently failing best-effort
// channel still shows up on dashboards.
type FanoutMetrics struct {
	channelRuns     *prometheus.CounterVec
	channelDuration *prometheus.HistogramVec
}

func NewFanoutMetrics(registerer prometheus.Registerer, cfg Config) *FanoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "agencyflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	channelRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "agencyflow_fanout_channel_runs_total",
		Help:        "Fan-out channel invocations by event, channel, policy and result.",
		ConstLabels: constLabels,
	}, []string{"event", "channel", "policy", "result"})
	channelDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "agencyflow_fanout_channel_duration_seconds",
		Help:        "Fan-out channel latency.",
		ConstLabels: constLabels,
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"channel"})

	registerer.MustRegister(channelRuns, channelDuration)

	return &FanoutMetrics{
		channelRuns:     channelRuns,
		channelDuration: channelDuration,
	}
}

// ObserveChannel records one channel invocation.
func (m *FanoutMetrics) ObserveChannel(event, channel, policy, result string, seconds float64) {
	if m == nil {
		return
	}
	m.channelRuns.WithLabelValues(event, channel, policy, result).Inc()
	m.channelDuration.WithLabelValues(channel).Observe(seconds)
}
