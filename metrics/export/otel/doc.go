// Package otel binds goWallet client metrics to an OpenTelemetry meter.
//
// Each counter becomes an Int64ObservableCounter and each latency bucket an
// Int64ObservableGauge named <histogram>_bucket_le_<bound>. Callers own the
// MeterProvider.
package otel
