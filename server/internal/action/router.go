package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/reportdesk/reportdesk/server/internal/report"
)

// Handler serves one operation of an action.
type Handler func(w http.ResponseWriter, r *http.Request) error

// Action is a group of operations mounted under one URL segment.
type Action interface {
	// URL is the mount segment, e.g. "/excel".
	URL() string
	// Default runs when no valid operation is named.
	Default(w http.ResponseWriter, r *http.Request) error
	// Operations returns the named operations. The router copies the table
	// once at registration.
	Operations() map[string]Handler
}

var operationName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidOperation reports whether name may select an operation.
func ValidOperation(name string) bool {
	return operationName.MatchString(name)
}

type entry struct {
	action Action
	ops    map[string]Handler
}

// Router dispatches requests under prefix to registered actions.
type Router struct {
	prefix  string
	actions map[string]entry
}

// NewRouter creates a Router for paths under prefix (context path plus
// mount path).
func NewRouter(prefix string) *Router {
	return &Router{
		prefix:  strings.TrimRight(prefix, "/"),
		actions: make(map[string]entry),
	}
}

// Register adds actions. It fails if two actions share a URL or an action
// exposes an operation whose name could never be routed.
func (rt *Router) Register(actions ...Action) error {
	for _, a := range actions {
		url := a.URL()
		if !strings.HasPrefix(url, "/") || strings.Contains(url[1:], "/") {
			return fmt.Errorf("action: invalid url %q", url)
		}
		if _, dup := rt.actions[url]; dup {
			return fmt.Errorf("action: duplicate url %q", url)
		}
		ops := make(map[string]Handler)
		for name, h := range a.Operations() {
			if !ValidOperation(name) {
				return fmt.Errorf("action %s: invalid operation name %q", url, name)
			}
			ops[name] = h
		}
		rt.actions[url] = entry{action: a, ops: ops}
	}
	return nil
}

// Resolve splits path into the action URL and operation name. op is empty
// when no valid operation segment is present.
func (rt *Router) Resolve(path string) (url, op string, ok bool) {
	if !strings.HasPrefix(path, rt.prefix) {
		return "", "", false
	}
	rest := path[len(rt.prefix):]
	if len(rest) < 2 || rest[0] != '/' {
		return "", "", false
	}
	slash := strings.Index(rest[1:], "/")
	if slash < 0 {
		return rest, "", true
	}
	slash++
	url = rest[:slash]
	if name := strings.TrimSpace(rest[slash+1:]); ValidOperation(name) {
		op = name
	}
	return url, op, true
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	url, op, ok := rt.Resolve(r.URL.Path)
	if !ok {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	e, ok := rt.actions[url]
	if !ok {
		jsonErr(w, http.StatusNotFound, "unknown action "+url)
		return
	}

	h := e.action.Default
	name := "default"
	if op != "" {
		if opHandler, found := e.ops[op]; found {
			h, name = opHandler, op
		} else {
			slog.Debug("action: unknown operation, using default", "action", url, "op", op)
		}
	}

	tw := &trackingWriter{ResponseWriter: w}
	if err := h(tw, r); err != nil {
		err = fmt.Errorf("process request %s/%s: %w", url, name, err)
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			slog.Error("action: request failed", "path", r.URL.Path, "err", err)
		} else {
			slog.Warn("action: request rejected", "path", r.URL.Path, "status", code, "err", err)
		}
		if tw.started {
			// Output already streamed; the status line is gone.
			return
		}
		jsonErr(w, code, err.Error())
	}
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, report.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, report.ErrExpired):
		return http.StatusGone
	case errors.Is(err, report.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// trackingWriter records whether a response has been started.
type trackingWriter struct {
	http.ResponseWriter
	started bool
}

func (t *trackingWriter) WriteHeader(code int) {
	t.started = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(p)
}

func (t *trackingWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		t.started = true
		f.Flush()
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
