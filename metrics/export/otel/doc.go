// Package otel bridges the engine counters onto an OpenTelemetry meter.
//
// [NewExporter] registers one observable counter per engine counter and, for the latency
// histogram, a cumulative bucket gauge carrying an "le" attribute. A single callback reads the
// engine snapshot on each collection. [NewMeterProvider] builds an OTLP/gRPC backed provider for
// the server binary.
package otel
