package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "comu_ws_frames_total", Help: "WS上行帧数"},
		[]string{"action"},
	)
	PendingEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "comu_pending_enqueued_total", Help: "进入待发送队列的消息数"},
	)
	PumpOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "comu_pump_messages_total", Help: "投递泵逐条结果"},
		[]string{"outcome"},
	)
	PumpDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "comu_pump_duration_ms", Help: "单次投递批次耗时", Buckets: prometheus.ExponentialBuckets(1, 2, 14)},
	)
	ActiveFeeds = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "comu_active_feeds", Help: "活跃实时订阅数"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "comu_http_requests_total", Help: "HTTP请求数"},
		[]string{"route", "status"},
	)
)

var once sync.Once

// Init 注册所有指标，可重复调用
func Init() {
	once.Do(func() {
		prometheus.MustRegister(WSMessagesTotal, PendingEnqueued, PumpOutcomes, PumpDuration, ActiveFeeds, HTTPRequests)
	})
}
