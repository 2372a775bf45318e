// Package prometheus exposes the engine counters through client_golang.
//
// [Collector] is a prometheus.Collector; register it on the process registry and serve it with
// promhttp. Counters are named goexpense_*_total and the latency histogram is
// goexpense_authenticate_latency_seconds.
package prometheus
