package otel

import (
	"context"
	"errors"
	"fmt"

	authcore "github.com/bojanp/authcore"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   authcore.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{authcore.MetricAccessTokenIssued, "authcore_access_tokens_issued_total", "Access tokens signed successfully."},
	{authcore.MetricRefreshTokenIssued, "authcore_refresh_tokens_issued_total", "Refresh tokens signed successfully."},
	{authcore.MetricTokenSigningFailure, "authcore_token_signing_failures_total", "Sign operations that failed."},
	{authcore.MetricSessionCreated, "authcore_sessions_created_total", "Session registry writes."},
	{authcore.MetricSessionRefreshed, "authcore_sessions_refreshed_total", "Reads that renewed the sliding TTL."},
	{authcore.MetricSessionTouchMiss, "authcore_session_touch_misses_total", "Touches of absent or inactive sessions."},
	{authcore.MetricSessionDeleted, "authcore_sessions_deleted_total", "Single-session deletions that removed a record."},
	{authcore.MetricSessionsPurged, "authcore_sessions_purged_total", "Records removed by bulk per-user deletion."},
	{authcore.MetricSessionStoreFailure, "authcore_session_store_failures_total", "Store errors erased by the fail-open boundary."},
	{authcore.MetricSessionScanFallback, "authcore_session_scan_fallbacks_total", "Key scans degraded from SCAN to KEYS."},
}

var histogramBoundSuffix = [...]string{"5ms", "10ms", "25ms", "50ms", "100ms", "250ms", "500ms", "inf"}

type observedCounter struct {
	id         authcore.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      authcore.MetricID
	buckets [len(histogramBoundSuffix)]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter registers authcore metrics as OTel observables and feeds
// them from snapshots on collection.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	latency      observedHistogram
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers the engine's metrics against meter.
func NewExporter(meter metric.Meter, engine *authcore.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is like [NewExporter] for any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+len(histogramBoundSuffix)+2)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	exporter.latency.id = authcore.MetricSessionGetLatency
	for i, suffix := range histogramBoundSuffix {
		name := "authcore_session_get_latency_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
		}
		exporter.latency.buckets[i] = ins
		observables = append(observables, ins)
	}
	countIns, err := meter.Int64ObservableGauge(
		"authcore_session_get_latency_count",
		metric.WithDescription("Histogram total sample count."),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram count gauge: %w", err)
	}
	exporter.latency.count = countIns
	observables = append(observables, countIns)

	auditDropped, err := meter.Int64ObservableCounter(
		"authcore_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}

		cumulative := cumulativeBuckets(snapshot.Histograms[exporter.latency.id])
		for i := range cumulative {
			observer.ObserveInt64(exporter.latency.buckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(exporter.latency.count, int64(cumulative[len(cumulative)-1]))

		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

func cumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(histogramBoundSuffix))
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
