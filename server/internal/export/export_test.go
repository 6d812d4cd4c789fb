package export_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportdesk/reportdesk/server/internal/export"
	"github.com/reportdesk/reportdesk/server/internal/report"
	"github.com/reportdesk/reportdesk/server/internal/store"
)

// --- fakes ------------------------------------------------------------------

type definition struct{ name string }

func (d definition) Name() string { return d.name }

type model struct {
	def    report.Definition
	params map[string]string
}

type fakeLoader struct{ loaded []string }

func (l *fakeLoader) Load(_ context.Context, token string) (report.Definition, error) {
	l.loaded = append(l.loaded, token)
	if token == "missing.ureport.xml" {
		return nil, fmt.Errorf("%w: %s", report.ErrNotFound, token)
	}
	return definition{name: token}, nil
}

type fakeBuilder struct{}

func (fakeBuilder) Build(_ context.Context, def report.Definition, params map[string]string) (report.Model, error) {
	if def.Name() == "broken" {
		return nil, errors.New("malformed definition")
	}
	return model{def: def, params: params}, nil
}

// sheetProducer records which operation was invoked.
type sheetProducer struct {
	format report.Format
	calls  []string
	fail   error
}

func (p *sheetProducer) Format() report.Format { return p.format }

func (p *sheetProducer) write(op string, m report.Model, w io.Writer) error {
	p.calls = append(p.calls, op)
	if p.fail != nil {
		return p.fail
	}
	_, err := fmt.Fprintf(w, "%s:%s", op, m.(model).def.Name())
	return err
}

func (p *sheetProducer) Produce(m report.Model, w io.Writer) error { return p.write("produce", m, w) }
func (p *sheetProducer) ProduceWithPaging(m report.Model, w io.Writer) error {
	return p.write("paging", m, w)
}
func (p *sheetProducer) ProduceWithSheet(m report.Model, w io.Writer) error {
	return p.write("sheet", m, w)
}

type docProducer struct{ format report.Format }

func (p docProducer) Format() report.Format { return p.format }
func (p docProducer) Produce(m report.Model, w io.Writer) error {
	_, err := io.WriteString(w, p.format.String())
	return err
}

type htmlProducer struct{ docProducer }

func (htmlProducer) ProducePage(m report.Model, pageIndex int) (report.PageRender, error) {
	return report.PageRender{Content: "<table/>", PageIndex: pageIndex, TotalPages: 3, ColumnMargin: 5}, nil
}

type sink struct {
	bytes.Buffer
	closed bool
}

func (s *sink) Close() error {
	s.closed = true
	return nil
}

type recordingObserver struct{ results []string }

func (o *recordingObserver) ObserveExport(format, mode, result string) {
	o.results = append(o.results, format+"/"+mode+"/"+result)
}

// --- helpers ----------------------------------------------------------------

type fixture struct {
	coord   *export.Coordinator
	loader  *fakeLoader
	excel   *sheetProducer
	excel97 *sheetProducer
	cache   *store.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		loader:  &fakeLoader{},
		excel:   &sheetProducer{format: report.Excel},
		excel97: &sheetProducer{format: report.Excel97},
		cache:   store.New(store.DefaultCapacity, store.DefaultTTL),
	}
	coord, err := export.New(f.loader, fakeBuilder{}, f.cache,
		f.excel,
		f.excel97,
		docProducer{format: report.PDF},
		docProducer{format: report.Word},
		htmlProducer{docProducer{format: report.HTML}},
	)
	require.NoError(t, err)
	f.coord = coord
	return f
}

// --- construction -----------------------------------------------------------

func TestNew_RequiresPagingForExcel(t *testing.T) {
	_, err := export.New(&fakeLoader{}, fakeBuilder{}, nil, docProducer{format: report.Excel})
	require.Error(t, err)
}

func TestNew_RequiresPageRenderForHTML(t *testing.T) {
	_, err := export.New(&fakeLoader{}, fakeBuilder{}, nil, docProducer{format: report.HTML})
	require.Error(t, err)
}

func TestNew_RejectsDuplicateFormat(t *testing.T) {
	_, err := export.New(&fakeLoader{}, fakeBuilder{}, nil,
		docProducer{format: report.PDF}, docProducer{format: report.PDF})
	require.Error(t, err)
}

func TestNew_RequiresLoaderAndBuilder(t *testing.T) {
	_, err := export.New(nil, fakeBuilder{}, nil)
	require.Error(t, err)
}

func TestSupports_Matrix(t *testing.T) {
	f := newFixture(t)

	for _, format := range []report.Format{report.Excel, report.Excel97} {
		for _, mode := range []report.Mode{report.Full, report.Paged, report.PagedSheeted} {
			assert.True(t, f.coord.Supports(format, mode), "%s/%s", format, mode)
		}
	}
	for _, format := range []report.Format{report.PDF, report.Word, report.HTML} {
		assert.True(t, f.coord.Supports(format, report.Full), format.String())
		assert.False(t, f.coord.Supports(format, report.Paged), format.String())
		assert.False(t, f.coord.Supports(format, report.PagedSheeted), format.String())
	}
}

// --- Export -----------------------------------------------------------------

func TestExport_DispatchesByMode(t *testing.T) {
	tests := []struct {
		mode report.Mode
		want string
	}{
		{report.Full, "produce"},
		{report.Paged, "paging"},
		{report.PagedSheeted, "sheet"},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			f := newFixture(t)
			out := &sink{}
			err := f.coord.Export(context.Background(), export.Request{
				Token:  "sales.ureport.xml",
				Format: report.Excel97,
				Mode:   tt.mode,
				Sink:   out,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, f.excel97.calls)
			assert.Empty(t, f.excel.calls)
			assert.Equal(t, tt.want+":sales.ureport.xml", out.String())
			assert.True(t, out.closed)
		})
	}
}

func TestExport_DefaultExcel(t *testing.T) {
	f := newFixture(t)
	out := &sink{}

	err := f.coord.Export(context.Background(), export.Request{
		Token:  "myreport.ureport.xml",
		Format: report.Excel,
		Mode:   report.Full,
		Sink:   out,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"produce"}, f.excel.calls)
	assert.Equal(t, []string{"myreport.ureport.xml"}, f.loader.loaded)
	assert.Equal(t, "ureport-myreport.xlsx", export.FileName("myreport.ureport.xml", "", report.Excel.Extension()))
}

func TestExport_BlankTokenWritesNothing(t *testing.T) {
	f := newFixture(t)
	out := &sink{}

	err := f.coord.Export(context.Background(), export.Request{
		Token:  "  ",
		Format: report.Excel,
		Sink:   out,
	})
	require.ErrorIs(t, err, report.ErrInvalidRequest)
	assert.Zero(t, out.Len())
	assert.True(t, out.closed, "sink must be released on validation failure")
	assert.Empty(t, f.loader.loaded)
}

func TestExport_NilSink(t *testing.T) {
	f := newFixture(t)
	err := f.coord.Export(context.Background(), export.Request{Token: "a", Format: report.PDF})
	require.ErrorIs(t, err, report.ErrInvalidRequest)
}

func TestExport_UnsupportedCombination(t *testing.T) {
	f := newFixture(t)
	out := &sink{}

	err := f.coord.Export(context.Background(), export.Request{
		Token:  "a.ureport.xml",
		Format: report.PDF,
		Mode:   report.Paged,
		Sink:   out,
	})
	require.ErrorIs(t, err, report.ErrUnsupported)
	assert.Zero(t, out.Len())
}

func TestExport_ExpiredPreviewWinsOverUnsupported(t *testing.T) {
	f := newFixture(t)
	out := &sink{}

	err := f.coord.Export(context.Background(), export.Request{
		Token:     report.PreviewKey,
		SessionID: "s1",
		Format:    report.PDF,
		Mode:      report.PagedSheeted,
		Sink:      out,
	})
	require.ErrorIs(t, err, report.ErrExpired)
	assert.NotErrorIs(t, err, report.ErrUnsupported)
	assert.Zero(t, out.Len())
}

func TestExport_PreviewWithoutCacheExpires(t *testing.T) {
	f := newFixture(t)
	out := &sink{}

	err := f.coord.Export(context.Background(), export.Request{
		Token:     report.PreviewKey,
		SessionID: "s1",
		Format:    report.Excel,
		Mode:      report.PagedSheeted,
		Sink:      out,
	})
	require.ErrorIs(t, err, report.ErrExpired)
	assert.False(t, errors.Is(err, report.ErrNotFound))
	assert.Zero(t, out.Len())
	assert.Empty(t, f.excel.calls)
	assert.True(t, out.closed)
}

func TestExport_PreviewUsesCachedDefinition(t *testing.T) {
	f := newFixture(t)
	f.cache.Put("s1", report.PreviewKey, definition{name: "designer-draft"})
	out := &sink{}

	err := f.coord.Export(context.Background(), export.Request{
		Token:     report.PreviewKey,
		SessionID: "s1",
		Params:    map[string]string{"year": "2024"},
		Format:    report.Excel,
		Mode:      report.PagedSheeted,
		Sink:      out,
	})
	require.NoError(t, err)
	assert.Equal(t, "sheet:designer-draft", out.String())
	assert.Empty(t, f.loader.loaded, "cached previews must not hit the loader")

	// The cached definition is read, not consumed.
	_, ok := f.cache.Get("s1", report.PreviewKey)
	assert.True(t, ok)
}

func TestExport_PreviewIsPerSession(t *testing.T) {
	f := newFixture(t)
	f.cache.Put("s1", report.PreviewKey, definition{name: "draft"})

	err := f.coord.Export(context.Background(), export.Request{
		Token:     report.PreviewKey,
		SessionID: "s2",
		Format:    report.PDF,
		Sink:      &sink{},
	})
	require.ErrorIs(t, err, report.ErrExpired)
}

func TestExport_PreviewWrongTypeExpires(t *testing.T) {
	f := newFixture(t)
	f.cache.Put("s1", report.PreviewKey, 42)

	err := f.coord.Export(context.Background(), export.Request{
		Token:     report.PreviewKey,
		SessionID: "s1",
		Format:    report.PDF,
		Sink:      &sink{},
	})
	require.ErrorIs(t, err, report.ErrExpired)
}

func TestExport_LoaderNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.coord.Export(context.Background(), export.Request{
		Token:  "missing.ureport.xml",
		Format: report.Word,
		Sink:   &sink{},
	})
	require.ErrorIs(t, err, report.ErrNotFound)
}

func TestExport_BuildFailure(t *testing.T) {
	f := newFixture(t)
	out := &sink{}
	err := f.coord.Export(context.Background(), export.Request{
		Token:  "broken",
		Format: report.Excel,
		Sink:   out,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed definition")
	assert.True(t, out.closed)
}

func TestExport_ProducerFailureReleasesSink(t *testing.T) {
	f := newFixture(t)
	f.excel.fail = errors.New("disk full")
	out := &sink{}

	err := f.coord.Export(context.Background(), export.Request{
		Token:  "a.ureport.xml",
		Format: report.Excel,
		Sink:   out,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, out.closed)
}

func TestExport_Observer(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}
	f.coord.SetObserver(obs)

	ctx := context.Background()
	_ = f.coord.Export(ctx, export.Request{Token: "a", Format: report.PDF, Sink: &sink{}})
	_ = f.coord.Export(ctx, export.Request{Token: report.PreviewKey, SessionID: "s", Format: report.PDF, Sink: &sink{}})
	_ = f.coord.Export(ctx, export.Request{Token: "", Format: report.PDF, Sink: &sink{}})
	_ = f.coord.Export(ctx, export.Request{Token: "broken", Format: report.PDF, Sink: &sink{}})

	assert.Equal(t, []string{
		"pdf/FULL/ok",
		"pdf/FULL/expired",
		"pdf/FULL/invalid",
		"pdf/FULL/error",
	}, obs.results)
}

func TestExport_PreviewSurvivesWithinTTLOnly(t *testing.T) {
	f := newFixture(t)
	f.cache.Put("s1", report.PreviewKey, definition{name: "draft"})

	// Sweeping at TTL drops the whole session store.
	f.cache.Sweep(time.Now().Add(store.DefaultTTL + time.Second))

	err := f.coord.Export(context.Background(), export.Request{
		Token:     report.PreviewKey,
		SessionID: "s1",
		Format:    report.Excel,
		Sink:      &sink{},
	})
	require.ErrorIs(t, err, report.ErrExpired)
}

// --- HTML -------------------------------------------------------------------

func TestRenderHTML(t *testing.T) {
	f := newFixture(t)
	out, err := f.coord.RenderHTML(context.Background(), "a.ureport.xml", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "html", out)
}

func TestRenderHTMLPage(t *testing.T) {
	f := newFixture(t)
	page, err := f.coord.RenderHTMLPage(context.Background(), "a.ureport.xml", "", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, report.PageRender{Content: "<table/>", PageIndex: 2, TotalPages: 3, ColumnMargin: 5}, page)
}

func TestRenderHTML_NoProducer(t *testing.T) {
	coord, err := export.New(&fakeLoader{}, fakeBuilder{}, nil)
	require.NoError(t, err)
	_, err = coord.RenderHTMLPage(context.Background(), "a", "", nil, 1)
	require.ErrorIs(t, err, report.ErrUnsupported)
}
