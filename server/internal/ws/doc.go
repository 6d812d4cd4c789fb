// Package ws streams session cache status to console clients over WebSocket.
//
// New(source, interval) creates a Hub over any StatusSource (api.Reporter in
// the server). Hub.Run(ctx) broadcasts until ctx is cancelled, then
// disconnects every client. Hub.ServeHTTP upgrades a connection and sends
// the current status at once.
//
// Messages:
//
//	{"event": "status", "data": {...}}   on connect and every interval
//	{"event": "evict",  "data": {...}}   after Notify, i.e. the cache evicted
//
// data has the schema of GET /api/v1/status. Notify calls that arrive while
// an evict event is pending are merged into it.
//
// Client queues are bounded; a client that falls behind is disconnected. The
// upgrader accepts all origins; restrict them at the reverse proxy. The
// server mounts the hub at /ws/status.
package ws
