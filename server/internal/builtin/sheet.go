package builtin

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"

	"github.com/reportdesk/reportdesk/server/internal/report"
)

// SheetProducer writes Models as SpreadsheetML 2003 workbooks, which Excel
// opens as .xls files.
type SheetProducer struct{}

// Format implements report.Producer.
func (SheetProducer) Format() report.Format { return report.Excel97 }

// Produce writes every row to a single worksheet.
func (SheetProducer) Produce(m report.Model, w io.Writer) error {
	return writeSpreadsheetML(m, report.Full, w)
}

// ProduceWithPaging writes a single worksheet with a page break after every
// report page.
func (SheetProducer) ProduceWithPaging(m report.Model, w io.Writer) error {
	return writeSpreadsheetML(m, report.Paged, w)
}

// ProduceWithSheet writes one worksheet per report page.
func (SheetProducer) ProduceWithSheet(m report.Model, w io.Writer) error {
	return writeSpreadsheetML(m, report.PagedSheeted, w)
}

// sheet is one worksheet of a workbook. breaks holds 1-based row numbers,
// header included, after which a page break falls.
type sheet struct {
	name   string
	rows   []Row
	breaks []int
}

// layout splits m into worksheets for mode.
func layout(m *Model, mode report.Mode) []sheet {
	switch mode {
	case report.PagedSheeted:
		sheets := make([]sheet, len(m.Pages))
		for i, p := range m.Pages {
			sheets[i] = sheet{name: sheetName(i + 1), rows: p}
		}
		return sheets
	case report.Paged:
		s := sheet{name: sheetName(1)}
		header := 0
		if len(m.Columns) > 0 {
			header = 1
		}
		for i, p := range m.Pages {
			s.rows = append(s.rows, p...)
			if i < len(m.Pages)-1 {
				s.breaks = append(s.breaks, header+len(s.rows))
			}
		}
		return []sheet{s}
	default:
		var rows []Row
		for _, p := range m.Pages {
			rows = append(rows, p...)
		}
		return []sheet{{name: sheetName(1), rows: rows}}
	}
}

func sheetName(n int) string {
	return "Sheet" + strconv.Itoa(n)
}

var decimal = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// isNumber reports whether s is a plain finite decimal that spreadsheet
// applications read as a number. NaN, Inf and hex floats are text.
func isNumber(s string) bool {
	if !decimal.MatchString(s) {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0)
}

const (
	workbookOpen = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<?mso-application progid="Excel.Sheet"?>` + "\n" +
		`<Workbook xmlns="urn:schemas-microsoft-com:office:spreadsheet"` +
		` xmlns:ss="urn:schemas-microsoft-com:office:spreadsheet"` +
		` xmlns:x="urn:schemas-microsoft-com:office:excel">`
	workbookClose = `</Workbook>`
)

func writeSpreadsheetML(m report.Model, mode report.Mode, w io.Writer) error {
	bm, err := asModel(m)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(workbookOpen)
	if bm.Title != "" {
		bw.WriteString(`<DocumentProperties xmlns="urn:schemas-microsoft-com:office:office"><Title>`)
		escape(bw, bm.Title)
		bw.WriteString(`</Title></DocumentProperties>`)
	}
	for _, s := range layout(bm, mode) {
		bw.WriteString(`<Worksheet ss:Name="`)
		escape(bw, s.name)
		bw.WriteString(`"><Table>`)
		if len(bm.Columns) > 0 {
			writeMLRow(bw, bm.Columns)
		}
		for _, r := range s.rows {
			writeMLRow(bw, r.Cells)
		}
		bw.WriteString(`</Table>`)
		if len(s.breaks) > 0 {
			bw.WriteString(`<WorksheetOptions xmlns="urn:schemas-microsoft-com:office:excel"><PageBreaks><RowBreaks>`)
			for _, b := range s.breaks {
				fmt.Fprintf(bw, `<RowBreak><Row>%d</Row></RowBreak>`, b)
			}
			bw.WriteString(`</RowBreaks></PageBreaks></WorksheetOptions>`)
		}
		bw.WriteString(`</Worksheet>`)
	}
	bw.WriteString(workbookClose)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("builtin: write workbook: %w", err)
	}
	return nil
}

func writeMLRow(w *bufio.Writer, cells []string) {
	w.WriteString(`<Row>`)
	for _, c := range cells {
		typ := "String"
		if isNumber(c) {
			typ = "Number"
		}
		fmt.Fprintf(w, `<Cell><Data ss:Type="%s">`, typ)
		escape(w, c)
		w.WriteString(`</Data></Cell>`)
	}
	w.WriteString(`</Row>`)
}

func escape(w io.Writer, s string) {
	xml.EscapeText(w, []byte(s)) //nolint:errcheck
}
