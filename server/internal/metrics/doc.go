// Package metrics keeps the console's counters and serves them in the
// Prometheus text exposition format.
//
// Exported families:
//   - reportdesk_exports_total{format,mode,result}
//   - reportdesk_cache_evictions_total{kind="entry"|"session"}
//   - reportdesk_cache_sessions, reportdesk_cache_entries (gauges, read on scrape)
package metrics
