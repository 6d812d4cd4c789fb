// Package builtin is a small reference report engine.
//
// Definitions are XML files kept in a directory:
//
//	<report title="Sales ${year}" rows-per-page="20" column-margin="4">
//	  <column>Region</column>
//	  <column>Total</column>
//	  <row><cell>North</cell><cell>${north}</cell></row>
//	</report>
//
// ${name} placeholders in the title and cells are replaced with request
// parameters when the report is built. Producers:
//
//	HTMLProducer      HTML document, or one page for interactive preview
//	WorkbookProducer  .xlsx (Office Open XML), all three modes
//	SheetProducer     .xls (SpreadsheetML 2003), all three modes
//
// Paged modes put a row break after each report page; sheeted modes write one
// worksheet per page. PDF and Word come from external producers.
package builtin
