package builtin

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/reportdesk/reportdesk/server/internal/report"
)

// WorkbookProducer writes Models as Office Open XML workbooks (.xlsx).
// Cells are written as inline strings or numbers; there is no styling.
type WorkbookProducer struct{}

// Format implements report.Producer.
func (WorkbookProducer) Format() report.Format { return report.Excel }

// Produce writes every row to a single worksheet.
func (WorkbookProducer) Produce(m report.Model, w io.Writer) error {
	return writeXLSX(m, report.Full, w)
}

// ProduceWithPaging writes a single worksheet with a row break after every
// report page.
func (WorkbookProducer) ProduceWithPaging(m report.Model, w io.Writer) error {
	return writeXLSX(m, report.Paged, w)
}

// ProduceWithSheet writes one worksheet per report page.
func (WorkbookProducer) ProduceWithSheet(m report.Model, w io.Writer) error {
	return writeXLSX(m, report.PagedSheeted, w)
}

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	nsMain    = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRel     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRel  = "http://schemas.openxmlformats.org/package/2006/relationships"
)

func writeXLSX(m report.Model, mode report.Mode, w io.Writer) error {
	bm, err := asModel(m)
	if err != nil {
		return err
	}
	sheets := layout(bm, mode)

	zw := zip.NewWriter(w)
	parts := []struct {
		name  string
		write func(*bufio.Writer)
	}{
		{"[Content_Types].xml", func(b *bufio.Writer) { contentTypes(b, len(sheets)) }},
		{"_rels/.rels", func(b *bufio.Writer) {
			b.WriteString(xmlHeader + `<Relationships xmlns="` + nsPkgRel + `">` +
				`<Relationship Id="rId1" Type="` + nsRel + `/officeDocument" Target="xl/workbook.xml"/>` +
				`</Relationships>`)
		}},
		{"xl/workbook.xml", func(b *bufio.Writer) { workbook(b, sheets) }},
		{"xl/_rels/workbook.xml.rels", func(b *bufio.Writer) { workbookRels(b, len(sheets)) }},
	}
	for i := range sheets {
		s := sheets[i]
		parts = append(parts, struct {
			name  string
			write func(*bufio.Writer)
		}{
			"xl/worksheets/sheet" + strconv.Itoa(i+1) + ".xml",
			func(b *bufio.Writer) { worksheet(b, bm.Columns, s) },
		})
	}

	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("builtin: xlsx part %s: %w", p.name, err)
		}
		bw := bufio.NewWriter(fw)
		p.write(bw)
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("builtin: xlsx part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("builtin: write xlsx: %w", err)
	}
	return nil
}

func contentTypes(b *bufio.Writer, n int) {
	b.WriteString(xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(b, `<Override PartName="/xl/worksheets/sheet%d.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
}

func workbook(b *bufio.Writer, sheets []sheet) {
	b.WriteString(xmlHeader + `<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRel + `"><sheets>`)
	for i, s := range sheets {
		b.WriteString(`<sheet name="`)
		escape(b, s.name)
		fmt.Fprintf(b, `" sheetId="%d" r:id="rId%d"/>`, i+1, i+1)
	}
	b.WriteString(`</sheets></workbook>`)
}

func workbookRels(b *bufio.Writer, n int) {
	b.WriteString(xmlHeader + `<Relationships xmlns="` + nsPkgRel + `">`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(b, `<Relationship Id="rId%d" Type="%s/worksheet" Target="worksheets/sheet%d.xml"/>`, i, nsRel, i)
	}
	b.WriteString(`</Relationships>`)
}

func worksheet(b *bufio.Writer, columns []string, s sheet) {
	b.WriteString(xmlHeader + `<worksheet xmlns="` + nsMain + `"><sheetData>`)
	row := 0
	if len(columns) > 0 {
		row++
		xlsxRow(b, row, columns)
	}
	for _, r := range s.rows {
		row++
		xlsxRow(b, row, r.Cells)
	}
	b.WriteString(`</sheetData>`)
	if len(s.breaks) > 0 {
		fmt.Fprintf(b, `<rowBreaks count="%d" manualBreakCount="%d">`, len(s.breaks), len(s.breaks))
		for _, br := range s.breaks {
			fmt.Fprintf(b, `<brk id="%d" max="16383" man="1"/>`, br)
		}
		b.WriteString(`</rowBreaks>`)
	}
	b.WriteString(`</worksheet>`)
}

func xlsxRow(b *bufio.Writer, n int, cells []string) {
	fmt.Fprintf(b, `<row r="%d">`, n)
	for i, c := range cells {
		ref := columnName(i) + strconv.Itoa(n)
		if isNumber(c) {
			fmt.Fprintf(b, `<c r="%s"><v>%s</v></c>`, ref, c)
			continue
		}
		fmt.Fprintf(b, `<c r="%s" t="inlineStr"><is><t xml:space="preserve">`, ref)
		escape(b, c)
		b.WriteString(`</t></is></c>`)
	}
	b.WriteString(`</row>`)
}

// columnName returns the spreadsheet column letters for 0-based index i
// (0 → A, 25 → Z, 26 → AA).
func columnName(i int) string {
	var buf [8]byte
	pos := len(buf)
	for i >= 0 {
		pos--
		buf[pos] = byte('A' + i%26)
		i = i/26 - 1
	}
	return string(buf[pos:])
}
