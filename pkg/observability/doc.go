// Package observability exports client activity to Prometheus and
// OpenTelemetry.
//
// Metrics implements transport.Recorder, so passing it through
// transport.WithRecorder is enough to populate request, notification and
// process metrics. TracingProvider builds an SDK tracer provider whose
// Tracer is handed to client.WithTracer.
package observability
