// Package metrics keeps the server's counters and serves them in the
// Prometheus text exposition format.
//
// Families:
//   - taskboard_http_requests_total{route,method,code}       counter
//   - taskboard_http_request_duration_seconds{route,method}  summary (sum/count)
//   - taskboard_store_operations_total{op,result}            counter
//   - taskboard_tasks                                        gauge
//
// Registry.InstrumentStore wraps a store.Store so every Load and Save is
// counted and the task gauge follows the last collection seen.
package metrics
