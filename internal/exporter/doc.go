// Package exporter persists recognized dump sections as clean output files.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// appending, and UTF-8 BOM for Excel compatibility. Every tabular output is
// comma-delimited regardless of the delimiter used in the dump.
//
// Materializer: Writes one file per section. Structured sections become
// pretty-printed JSON documents, falling back to the verbatim captured text
// when the content does not parse. Tabular sections are parsed against their
// sniffed delimiter and re-encoded as CSV.
//
// WriteWorkbook: Optional XLSX export collecting every tabular section into
// a single workbook, one sheet per section kind.
//
// Example usage:
//
//	m := exporter.NewMaterializer(logger)
//
//	// Write each recognized section into the run directory
//	for _, sec := range set.Sections() {
//		path, err := m.WriteSection(sec, "out")
//		...
//	}
//
//	// Optionally collect tabular sections into one workbook
//	path, err := m.WriteWorkbook(set, "out/sections.xlsx")
package exporter
