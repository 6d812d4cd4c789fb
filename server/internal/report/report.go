package report

import (
	"context"
	"io"
)

// PreviewKey is the file token (and cache key) that refers to the preview
// definition cached for the caller's session.
const PreviewKey = "p"

// Definition is a loaded report definition. Engines define the concrete type.
type Definition interface {
	Name() string
}

// Model is a built report, ready to be serialised by a Producer.
// It is consumed once per export and never mutated by the console.
type Model interface{}

// PageRender is one page of an HTML preview plus pagination metadata.
type PageRender struct {
	Content      string `json:"content"`
	PageIndex    int    `json:"pageIndex"`
	TotalPages   int    `json:"totalPage"`
	ColumnMargin int    `json:"columnMargin"`
}

// Loader resolves a file token to a definition. A token that does not
// resolve yields an error wrapping ErrNotFound.
type Loader interface {
	Load(ctx context.Context, token string) (Definition, error)
}

// Parser turns raw definition content (as posted by the designer) into a
// Definition.
type Parser interface {
	Parse(data []byte) (Definition, error)
}

// Builder computes a model from a definition and request parameters.
type Builder interface {
	Build(ctx context.Context, def Definition, params map[string]string) (Model, error)
}

// Producer serialises a model into one document format.
type Producer interface {
	Format() Format
	Produce(m Model, w io.Writer) error
}

// PagedProducer is a Producer that also supports paged and per-sheet output.
type PagedProducer interface {
	Producer
	ProduceWithPaging(m Model, w io.Writer) error
	ProduceWithSheet(m Model, w io.Writer) error
}

// HTMLProducer renders whole documents and single pages for preview.
type HTMLProducer interface {
	Producer
	ProducePage(m Model, pageIndex int) (PageRender, error)
}
