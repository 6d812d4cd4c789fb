package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/reportdesk/reportdesk/server/internal/report"
)

// Cache is the read side of the session object cache.
type Cache interface {
	Get(sessionID, key string) (any, bool)
}

// Observer receives one call per export attempt.
type Observer interface {
	ObserveExport(format, mode, result string)
}

// Request describes one export.
type Request struct {
	// Token is a definition file token or report.PreviewKey.
	Token string
	// SessionID scopes preview lookups. Empty means no session.
	SessionID string
	// Params are forwarded to the builder.
	Params map[string]string
	Format report.Format
	Mode   report.Mode
	// Sink receives the document. It is flushed and, if it implements
	// io.Closer, closed before Export returns.
	Sink io.Writer
}

type route struct {
	format report.Format
	mode   report.Mode
}

type produceFunc func(report.Model, io.Writer) error

// Coordinator resolves report sources and dispatches to producers.
// It is safe for concurrent use once constructed.
type Coordinator struct {
	loader   report.Loader
	builder  report.Builder
	cache    Cache
	routes   map[route]produceFunc
	html     report.HTMLProducer
	observer Observer
}

// New builds a Coordinator and its (format, mode) dispatch table.
// It fails if a producer lacks the capabilities its format requires or if two
// producers claim the same format.
func New(loader report.Loader, builder report.Builder, cache Cache, producers ...report.Producer) (*Coordinator, error) {
	if loader == nil || builder == nil {
		return nil, errors.New("export: loader and builder are required")
	}
	c := &Coordinator{
		loader:  loader,
		builder: builder,
		cache:   cache,
		routes:  make(map[route]produceFunc),
	}
	for _, p := range producers {
		if err := c.register(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetObserver installs o to receive export outcomes.
func (c *Coordinator) SetObserver(o Observer) { c.observer = o }

func (c *Coordinator) register(p report.Producer) error {
	f := p.Format()
	if _, dup := c.routes[route{f, report.Full}]; dup {
		return fmt.Errorf("export: duplicate producer for %s", f)
	}
	switch f {
	case report.HTML:
		hp, ok := p.(report.HTMLProducer)
		if !ok {
			return fmt.Errorf("export: %s producer must render single pages", f)
		}
		c.html = hp
		c.routes[route{f, report.Full}] = hp.Produce
	case report.PDF, report.Word:
		c.routes[route{f, report.Full}] = p.Produce
	case report.Excel, report.Excel97:
		pp, ok := p.(report.PagedProducer)
		if !ok {
			return fmt.Errorf("export: %s producer must support paging and sheets", f)
		}
		c.routes[route{f, report.Full}] = pp.Produce
		c.routes[route{f, report.Paged}] = pp.ProduceWithPaging
		c.routes[route{f, report.PagedSheeted}] = pp.ProduceWithSheet
	default:
		return fmt.Errorf("export: unknown format %s", f)
	}
	return nil
}

// Supports reports whether a producer is registered for (f, m).
func (c *Coordinator) Supports(f report.Format, m report.Mode) bool {
	_, ok := c.routes[route{f, m}]
	return ok
}

// Export writes the requested document to req.Sink.
//
// The source is resolved before the (format, mode) route is checked, and
// validation, expired-preview and unsupported failures are all detected before
// the sink is written. Output already streamed when a producer fails is not retracted.
func (c *Coordinator) Export(ctx context.Context, req Request) (err error) {
	start := time.Now()
	bw := bufio.NewWriter(discardIfNil(req.Sink))
	defer func() {
		err = errors.Join(err, release(bw, req.Sink))
		c.observe(req, err)
		if err != nil {
			return
		}
		slog.Debug("export: done",
			"format", req.Format,
			"mode", req.Mode,
			"token", req.Token,
			"elapsed", time.Since(start),
		)
	}()

	if req.Sink == nil {
		return fmt.Errorf("%w: no output sink", report.ErrInvalidRequest)
	}
	// The source is resolved first so a missing preview reports as expired
	// whatever format was asked for.
	def, err := c.resolve(ctx, req.Token, req.SessionID)
	if err != nil {
		return err
	}
	produce, ok := c.routes[route{req.Format, req.Mode}]
	if !ok {
		return fmt.Errorf("%w: %s with mode %s", report.ErrUnsupported, req.Format, req.Mode)
	}
	m, err := c.build(ctx, def, req.Params)
	if err != nil {
		return err
	}
	if err := produce(m, bw); err != nil {
		return fmt.Errorf("export: produce %s: %w", req.Format, err)
	}
	return nil
}

// RenderHTML renders the whole report as an HTML document.
func (c *Coordinator) RenderHTML(ctx context.Context, token, sessionID string, params map[string]string) (string, error) {
	if c.html == nil {
		return "", fmt.Errorf("%w: %s", report.ErrUnsupported, report.HTML)
	}
	m, err := c.model(ctx, token, sessionID, params)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := c.html.Produce(m, &sb); err != nil {
		return "", fmt.Errorf("export: produce %s: %w", report.HTML, err)
	}
	return sb.String(), nil
}

// RenderHTMLPage renders a single page of the report for preview.
func (c *Coordinator) RenderHTMLPage(ctx context.Context, token, sessionID string, params map[string]string, pageIndex int) (report.PageRender, error) {
	if c.html == nil {
		return report.PageRender{}, fmt.Errorf("%w: %s", report.ErrUnsupported, report.HTML)
	}
	m, err := c.model(ctx, token, sessionID, params)
	if err != nil {
		return report.PageRender{}, err
	}
	page, err := c.html.ProducePage(m, pageIndex)
	if err != nil {
		return report.PageRender{}, fmt.Errorf("export: render page %d: %w", pageIndex, err)
	}
	return page, nil
}

// model resolves the report source and builds it with params.
func (c *Coordinator) model(ctx context.Context, token, sessionID string, params map[string]string) (report.Model, error) {
	def, err := c.resolve(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}
	return c.build(ctx, def, params)
}

func (c *Coordinator) build(ctx context.Context, def report.Definition, params map[string]string) (report.Model, error) {
	m, err := c.builder.Build(ctx, def, params)
	if err != nil {
		return nil, fmt.Errorf("export: build %q: %w", def.Name(), err)
	}
	return m, nil
}

func (c *Coordinator) resolve(ctx context.Context, token, sessionID string) (report.Definition, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: report file can not be empty", report.ErrInvalidRequest)
	}
	if token != report.PreviewKey {
		def, err := c.loader.Load(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("export: load %q: %w", token, err)
		}
		return def, nil
	}

	var cached any
	ok := false
	if c.cache != nil {
		cached, ok = c.cache.Get(sessionID, report.PreviewKey)
	}
	if !ok {
		return nil, fmt.Errorf("%w, can not export", report.ErrExpired)
	}
	def, ok := cached.(report.Definition)
	if !ok {
		slog.Warn("export: preview cache holds unexpected type", "type", fmt.Sprintf("%T", cached))
		return nil, fmt.Errorf("%w, can not export", report.ErrExpired)
	}
	return def, nil
}

func (c *Coordinator) observe(req Request, err error) {
	if c.observer == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, report.ErrExpired):
		result = "expired"
	case errors.Is(err, report.ErrInvalidRequest), errors.Is(err, report.ErrUnsupported), errors.Is(err, report.ErrNotFound):
		result = "invalid"
	default:
		result = "error"
	}
	c.observer.ObserveExport(req.Format.String(), req.Mode.String(), result)
}

// release flushes buffered output and closes the sink if it is closable.
// Both steps run even if the first fails.
func release(bw *bufio.Writer, sink io.Writer) error {
	ferr := bw.Flush()
	if cl, ok := sink.(io.Closer); ok {
		return errors.Join(ferr, cl.Close())
	}
	return ferr
}

func discardIfNil(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
