// Package metrics 提供融合引擎的 Prometheus 指标。
//
// 所有方法对 nil *Collector 安全，未配置指标时调用方无需判断。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 请求结果
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback" // 结果中含兜底补齐物品
	OutcomeEmpty    = "empty"    // 候选池与兜底都为空
	OutcomeError    = "error"
)

// Collector 聚合引擎的请求、通道与兜底指标。
type Collector struct {
	requests        *prometheus.CounterVec
	channelResults  *prometheus.CounterVec
	channelDuration *prometheus.HistogramVec
	fallbackItems   prometheus.Counter
	requestDuration prometheus.Histogram
}

// NewCollector 在 reg 上注册指标。reg 为 nil 时使用 prometheus.DefaultRegisterer。
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridrec_requests_total",
			Help: "Total number of recommendation requests by outcome",
		}, []string{"outcome"}),
		channelResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridrec_channel_results_total",
			Help: "Total number of channel invocations by channel and outcome",
		}, []string{"channel", "outcome"}),
		channelDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hybridrec_channel_duration_seconds",
			Help:    "Channel scoring latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),
		fallbackItems: factory.NewCounter(prometheus.CounterOpts{
			Name: "hybridrec_fallback_items_total",
			Help: "Total number of popularity items used to pad short results",
		}),
		requestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hybridrec_request_duration_seconds",
			Help:    "Recommendation request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRequest 记录一次请求。
func (c *Collector) ObserveRequest(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(outcome).Inc()
	c.requestDuration.Observe(d.Seconds())
}

// ObserveChannel 记录一次通道调用。
func (c *Collector) ObserveChannel(channel, outcome string, d time.Duration) {
	if c == nil || channel == "" {
		return
	}
	c.channelResults.WithLabelValues(channel, outcome).Inc()
	c.channelDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// AddFallbackItems 累加兜底补齐的物品数。
func (c *Collector) AddFallbackItems(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.fallbackItems.Add(float64(n))
}
