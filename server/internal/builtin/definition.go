package builtin

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/reportdesk/reportdesk/server/internal/report"
)

// Definition is a parsed report definition.
type Definition struct {
	XMLName      xml.Name `xml:"report"`
	Title        string   `xml:"title,attr"`
	RowsPerPage  int      `xml:"rows-per-page,attr"`
	ColumnMargin int      `xml:"column-margin,attr"`
	Columns      []string `xml:"column"`
	Rows         []Row    `xml:"row"`

	name string
}

// Row is one data row.
type Row struct {
	Cells []string `xml:"cell"`
}

// Name returns the token the definition was loaded from.
func (d *Definition) Name() string { return d.name }

// Parser parses definitions posted by the designer.
type Parser struct{}

// Parse decodes an XML definition. The result is named "preview".
func (Parser) Parse(data []byte) (report.Definition, error) {
	return parse("preview", data)
}

func parse(name string, data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty report definition", report.ErrInvalidRequest)
	}
	def := &Definition{name: name}
	if err := xml.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("%w: parse definition %q: %v", report.ErrInvalidRequest, name, err)
	}
	if def.RowsPerPage < 0 {
		return nil, fmt.Errorf("%w: definition %q: rows-per-page must not be negative", report.ErrInvalidRequest, name)
	}
	return def, nil
}

// Loader reads definitions from a directory. Tokens may carry a
// "provider:" prefix, which is ignored.
type Loader struct {
	root string
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{root: dir}
}

// Load reads and parses the definition named by token.
func (l *Loader) Load(ctx context.Context, token string) (report.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := token
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: bad report file %q", report.ErrInvalidRequest, token)
	}

	data, err := os.ReadFile(filepath.Join(l.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", report.ErrNotFound, token)
		}
		return nil, fmt.Errorf("read report %q: %w", token, err)
	}
	return parse(token, data)
}
