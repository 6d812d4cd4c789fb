package action

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/reportdesk/reportdesk/server/internal/export"
	"github.com/reportdesk/reportdesk/server/internal/report"
	"github.com/reportdesk/reportdesk/server/internal/session"
)

// Exporter is the part of export.Coordinator the download actions use.
type Exporter interface {
	Export(ctx context.Context, req export.Request) error
}

// DownloadAction serves file downloads for one format.
type DownloadAction struct {
	url      string
	format   report.Format
	exporter Exporter
	legacy   bool
	ops      map[string]Handler
}

// NewDownloadAction creates the action for format mounted at url.
// Excel and Excel97 also get the paging and sheet operations.
// legacy selects the ISO-8859-1 filename encoding.
func NewDownloadAction(url string, format report.Format, exp Exporter, legacy bool) *DownloadAction {
	a := &DownloadAction{url: url, format: format, exporter: exp, legacy: legacy}
	a.ops = map[string]Handler{
		"default": a.handle(report.Full),
	}
	if format == report.Excel || format == report.Excel97 {
		a.ops["paging"] = a.handle(report.Paged)
		a.ops["sheet"] = a.handle(report.PagedSheeted)
	}
	return a
}

// NewExcelAction serves /excel (.xlsx).
func NewExcelAction(exp Exporter, legacy bool) *DownloadAction {
	return NewDownloadAction("/excel", report.Excel, exp, legacy)
}

// NewExcel97Action serves /excel97 (.xls).
func NewExcel97Action(exp Exporter, legacy bool) *DownloadAction {
	return NewDownloadAction("/excel97", report.Excel97, exp, legacy)
}

// NewPDFAction serves /pdf.
func NewPDFAction(exp Exporter, legacy bool) *DownloadAction {
	return NewDownloadAction("/pdf", report.PDF, exp, legacy)
}

// NewWordAction serves /word (.docx).
func NewWordAction(exp Exporter, legacy bool) *DownloadAction {
	return NewDownloadAction("/word", report.Word, exp, legacy)
}

func (a *DownloadAction) URL() string { return a.url }

func (a *DownloadAction) Default(w http.ResponseWriter, r *http.Request) error {
	return a.ops["default"](w, r)
}

func (a *DownloadAction) Operations() map[string]Handler { return a.ops }

func (a *DownloadAction) handle(mode report.Mode) Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		f := readForm(r)
		token := fileToken(f)
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("%w: report file can not be empty", report.ErrInvalidRequest)
		}

		name := export.FileName(token, f.get(paramFileName), a.format.Extension())
		out := &download{
			w:           w,
			contentType: a.format.ContentType(),
			disposition: disposition(name, a.legacy),
		}
		err := a.exporter.Export(r.Context(), export.Request{
			Token:     token,
			SessionID: session.FromContext(r.Context()),
			Params:    f.params(),
			Format:    a.format,
			Mode:      mode,
			Sink:      out,
		})
		if err != nil {
			return err
		}
		// An empty document still gets its headers.
		out.start()
		return nil
	}
}

func disposition(name string, legacy bool) string {
	enc := export.EncodeFilename(name, legacy)
	if legacy {
		return "attachment;filename=" + enc
	}
	return "attachment;filename=" + enc + ";filename*=UTF-8''" + enc
}

// download is an export sink that sets the response headers on the first
// write, so a failure before any output can still be reported as an error.
type download struct {
	w           http.ResponseWriter
	contentType string
	disposition string
	started     bool
}

func (d *download) start() {
	if d.started {
		return
	}
	d.started = true
	h := d.w.Header()
	h.Set("Content-Type", d.contentType)
	h.Set("Content-Disposition", d.disposition)
	d.w.WriteHeader(http.StatusOK)
}

func (d *download) Write(p []byte) (int, error) {
	d.start()
	return d.w.Write(p)
}

// Close flushes the response to the client if anything was written.
func (d *download) Close() error {
	if !d.started {
		return nil
	}
	if f, ok := d.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
