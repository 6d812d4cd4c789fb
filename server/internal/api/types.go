package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State    string `json:"state"`
	Sessions int    `json:"sessions"`
	Entries  int    `json:"entries"`
}

// CacheResponse is the payload for GET /api/v1/cache.
type CacheResponse struct {
	Sessions   int     `json:"sessions"`
	Entries    int     `json:"entries"`
	Capacity   int     `json:"capacity"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// FormatResponse is one entry in GET /api/v1/formats.
type FormatResponse struct {
	Format    string   `json:"format"`
	Extension string   `json:"extension"`
	Modes     []string `json:"modes"`
}

// StatusResponse is the payload for GET /api/v1/status and the data of each
// websocket status event.
type StatusResponse struct {
	GeneratedAt string         `json:"generated_at"`
	Health      HealthResponse `json:"health"`
	Cache       CacheResponse  `json:"cache"`
}

// ErrorResponse is returned for all error conditions.
type ErrorResponse struct {
	Error string `json:"error"`
}
