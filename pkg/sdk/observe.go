package eulex

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
)

// sdkMetrics are registered on the registry passed to WithPrometheus.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eulex",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Client calls by operation and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eulex",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "Client call latency. Ask includes the chat model round trip.",
			Buckets:   prometheus.ExponentialBucketsRange(0.005, 120, 12),
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at the collector a previous
// client already registered under the same name.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("eulex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("eulex: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// outcome classifies err for the status label. Caller mistakes and budget
// exhaustion are kept apart from provider failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrEmptyQuery):
		return "invalid"
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "quota"
	default:
		return "error"
	}
}

// observer logs and meters client calls. A nil observer does nothing.
type observer struct {
	logger  *zap.Logger
	metrics *sdkMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// track starts timing op. Defer the returned func with the address of the
// named error result; pass nil for calls that cannot fail.
func (o *observer) track(op string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		if o == nil {
			return
		}
		var err error
		if errp != nil {
			err = *errp
		}
		took := time.Since(start)

		if o.metrics != nil {
			o.metrics.operations.WithLabelValues(op, outcome(err)).Inc()
			o.metrics.duration.WithLabelValues(op).Observe(took.Seconds())
		}
		if o.logger == nil {
			return
		}
		if err != nil {
			o.logger.Warn("Client call failed",
				zap.String("op", op), zap.Duration("took", took), zap.Error(err))
			return
		}
		o.logger.Debug("Client call done", zap.String("op", op), zap.Duration("took", took))
	}
}
