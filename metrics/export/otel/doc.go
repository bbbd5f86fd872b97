// Package otel bridges authcore's in-process metrics into an
// OpenTelemetry meter. Counters and histogram buckets are registered as
// observables; collection pulls a fresh [authcore.MetricsSnapshot] on
// every reader cycle, so the bridge adds no cost to engine hot paths.
package otel
