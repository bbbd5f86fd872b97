package authcore

import (
	"context"
	"time"

	"github.com/bojanp/authcore/jwt"
	"github.com/bojanp/authcore/session"
)

// Engine is the public entry point: token issuance on one side, the
// session registry on the other. Build one through [Builder.Build];
// it is immutable and safe for concurrent use afterwards.
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	sessionStore *session.Store
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close drains and stops the audit dispatcher. The Engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events dropped due to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// PingStore returns a point-in-time store availability check and latency.
func (e *Engine) PingStore(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessionStore.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n uint64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, n)
}

func (e *Engine) auditEmit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	event.Timestamp = time.Now()
	e.audit.Emit(ctx, event)
}

// scanDegraded records a SCAN-to-KEYS fallback: invisible in the
// caller's result, visible to observability.
func (e *Engine) scanDegraded(ctx context.Context, userID string) {
	e.metricInc(MetricSessionScanFallback)
	e.auditEmit(ctx, AuditEvent{
		EventType: "session_scan_fallback",
		UserID:    userID,
		Success:   true,
	})
}

// storeFailure records a store error that the fail-open boundary is
// about to erase from the caller-visible result.
func (e *Engine) storeFailure(ctx context.Context, eventType, userID, deviceID string, err error) {
	e.metricInc(MetricSessionStoreFailure)
	e.auditEmit(ctx, AuditEvent{
		EventType: eventType,
		UserID:    userID,
		DeviceID:  deviceID,
		Success:   false,
		Error:     err.Error(),
	})
}
