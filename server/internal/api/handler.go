package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/reportdesk/reportdesk/server/internal/report"
	"github.com/reportdesk/reportdesk/server/internal/store"
)

// Supporter reports which export routes are available.
type Supporter interface {
	Supports(f report.Format, m report.Mode) bool
}

// StatsReader is the part of the session cache the status endpoints read.
type StatsReader interface {
	Stats() store.Stats
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	cache   StatsReader
	exports Supporter
	mux     *http.ServeMux
}

// New creates a Handler over the session cache. exports may be nil, in which
// case /api/v1/formats reports no formats.
func New(cache StatsReader, exports Supporter) http.Handler {
	h := &Handler{cache: cache, exports: exports, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/cache", h.cacheStats)
	h.mux.HandleFunc("/api/v1/formats", h.formats)
	h.mux.HandleFunc("/api/v1/status", h.status)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, toHealth(h.cache.Stats()))
}

// cacheStats returns GET /api/v1/cache.
func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, toCache(h.cache.Stats()))
}

// formats returns GET /api/v1/formats: every downloadable format with at
// least one supported mode.
func (h *Handler) formats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := []FormatResponse{}
	if h.exports != nil {
		for _, f := range []report.Format{report.Excel, report.Excel97, report.PDF, report.Word, report.HTML} {
			var modes []string
			for _, m := range []report.Mode{report.Full, report.Paged, report.PagedSheeted} {
				if h.exports.Supports(f, m) {
					modes = append(modes, m.String())
				}
			}
			if len(modes) > 0 {
				out = append(out, FormatResponse{Format: f.String(), Extension: f.Extension(), Modes: modes})
			}
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// status returns GET /api/v1/status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildStatus(h.cache, time.Now()))
}

// BuildStatus assembles a StatusResponse from the cache as of now.
func BuildStatus(cache StatsReader, now time.Time) StatusResponse {
	st := cache.Stats()
	return StatusResponse{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Health:      toHealth(st),
		Cache:       toCache(st),
	}
}

// Reporter builds status payloads for the websocket hub.
type Reporter struct {
	Cache StatsReader
}

// Status implements ws.StatusSource.
func (r Reporter) Status(now time.Time) StatusResponse {
	return BuildStatus(r.Cache, now)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, ErrorResponse{Error: msg})
}

// stateFromStats derives a coarse state label: "idle" when no session holds
// cached data, "active" otherwise.
func stateFromStats(st store.Stats) string {
	if st.Entries == 0 {
		return "idle"
	}
	return "active"
}

func toHealth(st store.Stats) HealthResponse {
	return HealthResponse{
		State:    stateFromStats(st),
		Sessions: st.Sessions,
		Entries:  st.Entries,
	}
}

func toCache(st store.Stats) CacheResponse {
	return CacheResponse{
		Sessions:   st.Sessions,
		Entries:    st.Entries,
		Capacity:   st.Capacity,
		TTLSeconds: st.TTL.Seconds(),
	}
}
