package builtin

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"regexp"

	"github.com/reportdesk/reportdesk/server/internal/report"
)

var placeholder = regexp.MustCompile(`\$\{([A-Za-z0-9_.]+)\}`)

// Model is a built report: the definition with parameters applied and rows
// split into pages.
type Model struct {
	Title        string
	Columns      []string
	Pages        [][]Row
	ColumnMargin int
}

// Builder builds Models from *Definition values.
type Builder struct{}

// Build substitutes params into def and paginates its rows.
func (Builder) Build(ctx context.Context, def report.Definition, params map[string]string) (report.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, ok := def.(*Definition)
	if !ok {
		return nil, fmt.Errorf("builtin: unsupported definition type %T", def)
	}
	expand := func(s string) string {
		return placeholder.ReplaceAllStringFunc(s, func(m string) string {
			return params[placeholder.FindStringSubmatch(m)[1]]
		})
	}

	rows := make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		cells := make([]string, len(r.Cells))
		for j, c := range r.Cells {
			cells[j] = expand(c)
		}
		rows[i] = Row{Cells: cells}
	}

	m := &Model{
		Title:        expand(d.Title),
		Columns:      d.Columns,
		ColumnMargin: d.ColumnMargin,
	}
	size := d.RowsPerPage
	if size == 0 || size > len(rows) {
		size = len(rows)
	}
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		m.Pages = append(m.Pages, rows[start:end])
	}
	if len(m.Pages) == 0 {
		m.Pages = [][]Row{nil}
	}
	return m, nil
}

var (
	pageTmpl = template.Must(template.New("page").Parse(
		`<table class="ureport-page"{{if .Margin}} style="margin-right:{{.Margin}}px"{{end}}>` +
			`<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>` +
			`<tbody>{{range .Rows}}<tr>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>` +
			`</table>`))

	docTmpl = template.Must(template.New("doc").Parse(
		`<!DOCTYPE html><html><head><meta charset="utf-8"><title>{{.Title}}</title></head><body>` +
			`{{range .Pages}}{{.}}{{end}}` +
			`</body></html>`))
)

type pageData struct {
	Columns []string
	Rows    []Row
	Margin  int
}

// HTMLProducer renders Models as HTML.
type HTMLProducer struct{}

// Format implements report.Producer.
func (HTMLProducer) Format() report.Format { return report.HTML }

// Produce writes the whole report as one HTML document. Nothing is written
// if rendering fails.
func (p HTMLProducer) Produce(m report.Model, w io.Writer) error {
	bm, err := asModel(m)
	if err != nil {
		return err
	}
	pages := make([]template.HTML, 0, len(bm.Pages))
	for _, rows := range bm.Pages {
		html, err := renderPage(bm, rows)
		if err != nil {
			return err
		}
		pages = append(pages, template.HTML(html))
	}
	var buf bytes.Buffer
	if err := docTmpl.Execute(&buf, struct {
		Title string
		Pages []template.HTML
	}{bm.Title, pages}); err != nil {
		return fmt.Errorf("builtin: render document: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// ProducePage renders one page. pageIndex is 1-based and clamped to the
// valid range.
func (HTMLProducer) ProducePage(m report.Model, pageIndex int) (report.PageRender, error) {
	bm, err := asModel(m)
	if err != nil {
		return report.PageRender{}, err
	}
	total := len(bm.Pages)
	if pageIndex < 1 {
		pageIndex = 1
	}
	if pageIndex > total {
		pageIndex = total
	}
	content, err := renderPage(bm, bm.Pages[pageIndex-1])
	if err != nil {
		return report.PageRender{}, err
	}
	return report.PageRender{
		Content:      content,
		PageIndex:    pageIndex,
		TotalPages:   total,
		ColumnMargin: bm.ColumnMargin,
	}, nil
}

func renderPage(m *Model, rows []Row) (string, error) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, pageData{Columns: m.Columns, Rows: rows, Margin: m.ColumnMargin}); err != nil {
		return "", fmt.Errorf("builtin: render page: %w", err)
	}
	return buf.String(), nil
}

func asModel(m report.Model) (*Model, error) {
	bm, ok := m.(*Model)
	if !ok {
		return nil, fmt.Errorf("builtin: unsupported model type %T", m)
	}
	return bm, nil
}
