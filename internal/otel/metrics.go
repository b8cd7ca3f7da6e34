package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce          sync.Once
	dispatchCounter          metric.Int64Counter
	dispatchDuration         metric.Float64Histogram
	riskAssessmentsCounter   metric.Int64Counter
	guardrailFailuresCounter metric.Int64Counter
	checkpointsCounter       metric.Int64Counter
	sseConnectionsGauge      metric.Int64ObservableGauge
	sseEventsCounter         metric.Int64Counter
	sseConnections           int64
	sseConnectionsMu         sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only runs once.
// Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		dispatchCounter, err = m.Int64Counter("workforce_dispatches_total", metric.WithDescription("Total dispatches by terminal state"))
		if err != nil {
			return
		}
		dispatchDuration, err = m.Float64Histogram("workforce_dispatch_duration_seconds", metric.WithDescription("End-to-end dispatch duration in seconds"))
		if err != nil {
			return
		}
		riskAssessmentsCounter, err = m.Int64Counter("workforce_risk_assessments_total", metric.WithDescription("Total risk assessments by level"))
		if err != nil {
			return
		}
		guardrailFailuresCounter, err = m.Int64Counter("workforce_guardrail_failures_total", metric.WithDescription("Total guardrail failures by stage"))
		if err != nil {
			return
		}
		checkpointsCounter, err = m.Int64Counter("workforce_checkpoints_total", metric.WithDescription("Total checkpoint attempts by outcome"))
		if err != nil {
			return
		}
		sseEventsCounter, err = m.Int64Counter("workforce_sse_events_total", metric.WithDescription("Total SSE events published"))
		if err != nil {
			return
		}
		sseConnectionsGauge, err = m.Int64ObservableGauge("workforce_sse_connections", metric.WithDescription("Current SSE subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			sseConnectionsMu.Lock()
			n := sseConnections
			sseConnectionsMu.Unlock()
			o.ObserveInt64(sseConnectionsGauge, n)
			return nil
		}, sseConnectionsGauge)
		if err != nil {
			return
		}
	})
	return err
}

// RecordDispatch records one completed dispatch and its duration.
func RecordDispatch(ctx context.Context, state string, duration time.Duration) {
	if dispatchCounter != nil {
		dispatchCounter.Add(ctx, 1, metric.WithAttributes(AttrState.String(state)))
	}
	if dispatchDuration != nil {
		dispatchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrState.String(state)))
	}
}

// RecordRiskAssessment records one assessed instruction by level.
func RecordRiskAssessment(ctx context.Context, level string) {
	if riskAssessmentsCounter == nil {
		return
	}
	riskAssessmentsCounter.Add(ctx, 1, metric.WithAttributes(AttrLevel.String(level)))
}

// RecordGuardrailFailure records one failed guardrail check by stage and rule.
func RecordGuardrailFailure(ctx context.Context, stage, rule string) {
	if guardrailFailuresCounter == nil {
		return
	}
	guardrailFailuresCounter.Add(ctx, 1, metric.WithAttributes(
		AttrStage.String(stage),
		attribute.String("rule", rule),
	))
}

// RecordCheckpoint records one checkpoint attempt.
func RecordCheckpoint(ctx context.Context, success bool) {
	if checkpointsCounter == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	checkpointsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSSEEvent records one SSE event published.
func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

// AddSSEConnection adds 1 to the SSE connection gauge (call on subscribe).
func AddSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections++
	sseConnectionsMu.Unlock()
}

// RemoveSSEConnection subtracts 1 from the SSE connection gauge (call on unsubscribe).
func RemoveSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections--
	if sseConnections < 0 {
		sseConnections = 0
	}
	sseConnectionsMu.Unlock()
}

// DecisionCountFunc returns (done, halted, pending) counts for the decisions gauge.
type DecisionCountFunc func() (done, halted, pending int64)

// InitMetricsWithDecisionCount creates instruments and optionally registers a
// callback reporting decision totals by terminal state. If countFn is nil, the
// gauge is not reported.
func InitMetricsWithDecisionCount(ctx context.Context, countFn DecisionCountFunc) error {
	if err := InitMetrics(ctx); err != nil {
		return err
	}
	if countFn == nil {
		return nil
	}
	m := Meter()
	decisionsGauge, err := m.Float64ObservableGauge("workforce_decisions_total", metric.WithDescription("Number of recorded decisions by state"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		done, halted, pending := countFn()
		o.ObserveFloat64(decisionsGauge, float64(done), metric.WithAttributes(AttrState.String("DONE")))
		o.ObserveFloat64(decisionsGauge, float64(halted), metric.WithAttributes(AttrState.String("HALTED")))
		o.ObserveFloat64(decisionsGauge, float64(pending), metric.WithAttributes(AttrState.String("ROUTED")))
		return nil
	}, decisionsGauge)
	return err
}
