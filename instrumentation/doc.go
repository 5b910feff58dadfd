// Package instrumentation provides OpenTelemetry metrics and tracing for the
// guard. Providers default to no-op; the embedding process injects configured
// MeterProvider/TracerProvider instances to export data.
package instrumentation
