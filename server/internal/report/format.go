package report

import (
	"fmt"
	"strings"
)

// Format is a target document format.
type Format int

const (
	HTML Format = iota
	PDF
	Word
	Excel
	Excel97
)

var formatNames = map[Format]string{
	HTML:    "html",
	PDF:     "pdf",
	Word:    "word",
	Excel:   "excel",
	Excel97: "excel97",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Extension returns the download file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case HTML:
		return ".html"
	case PDF:
		return ".pdf"
	case Word:
		return ".docx"
	case Excel:
		return ".xlsx"
	case Excel97:
		return ".xls"
	}
	return ""
}

// ContentType returns the response media type for the format.
func (f Format) ContentType() string {
	switch f {
	case HTML:
		return "text/html; charset=utf-8"
	case PDF:
		return "application/pdf"
	case Word:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case Excel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case Excel97:
		return "application/vnd.ms-excel"
	}
	return "application/octet-stream"
}

// Mode governs how a model's pages map onto the output document.
type Mode int

const (
	// Full writes one consolidated document.
	Full Mode = iota
	// Paged breaks the document at each logical page, same sheet.
	Paged
	// PagedSheeted writes one sheet or section per page group.
	PagedSheeted
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "FULL"
	case Paged:
		return "PAGED"
	case PagedSheeted:
		return "PAGED_SHEETED"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseFormat maps a format name (case-insensitive) to a Format.
func ParseFormat(s string) (Format, error) {
	for f, n := range formatNames {
		if strings.EqualFold(s, n) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: format %q", ErrUnsupported, s)
}
