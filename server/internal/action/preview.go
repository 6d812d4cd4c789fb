package action

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/reportdesk/reportdesk/server/internal/report"
	"github.com/reportdesk/reportdesk/server/internal/session"
)

// Previewer renders reports as HTML for interactive preview.
type Previewer interface {
	RenderHTML(ctx context.Context, token, sessionID string, params map[string]string) (string, error)
	RenderHTMLPage(ctx context.Context, token, sessionID string, params map[string]string, pageIndex int) (report.PageRender, error)
}

// PreviewAction serves /preview.
type PreviewAction struct {
	previewer Previewer
	ops       map[string]Handler
}

// NewPreviewAction creates the preview action.
func NewPreviewAction(p Previewer) *PreviewAction {
	a := &PreviewAction{previewer: p}
	a.ops = map[string]Handler{
		"loadData": a.loadData,
	}
	return a
}

func (a *PreviewAction) URL() string { return "/preview" }

func (a *PreviewAction) Operations() map[string]Handler { return a.ops }

// Default renders the whole report as an HTML document.
func (a *PreviewAction) Default(w http.ResponseWriter, r *http.Request) error {
	f := readForm(r)
	token := fileToken(f)
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: report file can not be empty", report.ErrInvalidRequest)
	}
	html, err := a.previewer.RenderHTML(r.Context(), token, session.FromContext(r.Context()), f.params())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", report.HTML.ContentType())
	w.WriteHeader(http.StatusOK)
	_, err = io.WriteString(w, html)
	return err
}

// loadData returns one page (_i, 1-based, default 1) with pagination
// metadata as JSON.
func (a *PreviewAction) loadData(w http.ResponseWriter, r *http.Request) error {
	f := readForm(r)
	token := fileToken(f)
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: report file can not be empty", report.ErrInvalidRequest)
	}
	pageIndex := 1
	if s := f.get(paramPageIndex); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: page index %q", report.ErrInvalidRequest, s)
		}
		pageIndex = n
	}
	page, err := a.previewer.RenderHTMLPage(r.Context(), token, session.FromContext(r.Context()), f.params(), pageIndex)
	if err != nil {
		return err
	}
	jsonResp(w, http.StatusOK, page)
	return nil
}
