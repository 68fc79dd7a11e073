package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Shots          *prometheus.CounterVec
	PenaltyMinutes prometheus.Counter
	LedgerErrors   *prometheus.CounterVec
	ActiveChats    prometheus.Gauge
	FireLatency    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Shots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shots_total",
			Help:      "Number of shots fired, by outcome",
		}, []string{"outcome"}),
		PenaltyMinutes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "penalty_minutes_total",
			Help:      "Total mute minutes handed out",
		}),
		LedgerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_errors_total",
			Help:      "Failed ledger operations, by operation",
		}, []string{"op"}),
		ActiveChats: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_chats",
			Help:      "Chats with a loaded revolver",
		}),
		FireLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fire_latency_seconds",
			Help:      "Fire request latency including ledger updates",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}

// Monitor - метрики бота на собственном реестре. Методы nil-безопасны,
// так что сервис можно собрать без мониторинга.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		m.metrics.Shots,
		m.metrics.PenaltyMinutes,
		m.metrics.LedgerErrors,
		m.metrics.ActiveChats,
		m.metrics.FireLatency,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the bot started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve отдаёт /metrics на addr, пока не отменён ctx.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (m *Monitor) ObserveShot(hit bool, penaltyMinutes int) {
	if m == nil {
		return
	}
	if hit {
		m.metrics.Shots.WithLabelValues("hit").Inc()
		m.metrics.PenaltyMinutes.Add(float64(penaltyMinutes))
		return
	}
	m.metrics.Shots.WithLabelValues("miss").Inc()
}

func (m *Monitor) IncLedgerErrors(op string) {
	if m == nil {
		return
	}
	m.metrics.LedgerErrors.WithLabelValues(op).Inc()
}

func (m *Monitor) SetActiveChats(count int) {
	if m == nil {
		return
	}
	m.metrics.ActiveChats.Set(float64(count))
}

func (m *Monitor) ObserveFireLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.metrics.FireLatency.Observe(d.Seconds())
}
