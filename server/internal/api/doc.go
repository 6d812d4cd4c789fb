// Package api implements the status REST API of the report console server.
//
// New(cache, exports) returns an http.Handler that serves:
//
//	GET /api/v1/health   state ("idle" or "active"), live sessions, cached entries
//	GET /api/v1/cache    session cache counters plus capacity and ttl_seconds
//	GET /api/v1/formats  downloadable formats and their supported modes
//	GET /api/v1/status   health and cache together, with generated_at
//
// All endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. JSON types are defined in types.go.
package api
