package action

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/reportdesk/reportdesk/server/internal/export"
	"github.com/reportdesk/reportdesk/server/internal/report"
	"github.com/reportdesk/reportdesk/server/internal/session"
)

// PreviewCache is the write side of the session object cache.
type PreviewCache interface {
	Put(sessionID, key string, value any)
	Remove(sessionID, key string)
}

// DesignerAction serves /designer: it stores the definition being edited so
// that preview and export requests with _u=p can use it.
type DesignerAction struct {
	parser report.Parser
	cache  PreviewCache
	ops    map[string]Handler
}

// NewDesignerAction creates the designer action.
func NewDesignerAction(parser report.Parser, cache PreviewCache) *DesignerAction {
	a := &DesignerAction{parser: parser, cache: cache}
	a.ops = map[string]Handler{
		"savePreviewData":   a.savePreviewData,
		"removePreviewData": a.removePreviewData,
	}
	return a
}

func (a *DesignerAction) URL() string { return "/designer" }

func (a *DesignerAction) Operations() map[string]Handler { return a.ops }

// Default has nothing to serve; the designer UI is hosted elsewhere.
func (a *DesignerAction) Default(w http.ResponseWriter, r *http.Request) error {
	return fmt.Errorf("%w: designer operation required", report.ErrInvalidRequest)
}

// savePreviewData parses the posted content parameter and caches it under
// the preview key for the caller's session.
func (a *DesignerAction) savePreviewData(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil
	}
	sid := session.FromContext(r.Context())
	if sid == "" {
		return fmt.Errorf("%w: no session", report.ErrInvalidRequest)
	}
	content := export.Decode(r.PostFormValue("content"))
	def, err := a.parser.Parse([]byte(content))
	if err != nil {
		return err
	}
	a.cache.Put(sid, report.PreviewKey, def)
	slog.Debug("designer: preview cached", "session", sid)
	jsonResp(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}

// removePreviewData drops the caller's cached preview.
func (a *DesignerAction) removePreviewData(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil
	}
	a.cache.Remove(session.FromContext(r.Context()), report.PreviewKey)
	jsonResp(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}
