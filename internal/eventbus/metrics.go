package eventbus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource - всё, что экспортеру нужно от шины
type StatsSource interface {
	Metrics() Stats
}

// MetricsExporter раз в интервал переносит Stats шины в Prometheus.
// Счётчики растут на приращение с прошлого опроса; /metrics отдаёт REST-сервер.
type MetricsExporter struct {
	src  StatsSource
	last Stats

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func busCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shooter",
		Subsystem: "eventbus",
		Name:      name,
		Help:      help,
	})
}

// NewMetricsExporter регистрирует метрики шины в reg
func NewMetricsExporter(src StatsSource, reg prometheus.Registerer) *MetricsExporter {
	m := &MetricsExporter{
		src:       src,
		stop:      make(chan struct{}),
		published: busCounter("messages_published_total", "Опубликованные игровые события."),
		consumed:  busCounter("messages_consumed_total", "События, доставленные подписчикам."),
		dropped:   busCounter("messages_dropped_total", "События, потерянные из-за ошибок или переполнения."),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shooter",
			Subsystem: "eventbus",
			Name:      "messages_inflight",
			Help:      "События в очереди доставки.",
		}),
	}
	reg.MustRegister(m.published, m.consumed, m.dropped, m.inflight)
	return m
}

// Start запускает фоновый опрос; interval <= 0 - раз в секунду
func (m *MetricsExporter) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				m.Collect()
			case <-m.stop:
				m.Collect()
				return
			}
		}
	}()
}

// Stop снимает последний срез и ждёт выхода опроса. Повторный вызов безопасен.
func (m *MetricsExporter) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// Collect переносит один срез Stats. Вызывается из опроса, в тестах напрямую.
func (m *MetricsExporter) Collect() {
	now := m.src.Metrics()
	addDelta(m.published, now.Published, m.last.Published)
	addDelta(m.consumed, now.Consumed, m.last.Consumed)
	addDelta(m.dropped, now.Dropped, m.last.Dropped)
	m.inflight.Set(float64(now.InFlight))
	m.last = now
}

// addDelta игнорирует откат счётчика шины (переподключение)
func addDelta(c prometheus.Counter, now, prev uint64) {
	if now > prev {
		c.Add(float64(now - prev))
	}
}
