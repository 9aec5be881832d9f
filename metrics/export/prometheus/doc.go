// Package prometheus renders goWallet client counters and the login latency
// histogram in Prometheus text exposition format. Counters are named
// gowallet_*_total.
//
// The exporter never registers with a global registry; callers mount
// [Exporter.Handler] where they need it.
package prometheus
