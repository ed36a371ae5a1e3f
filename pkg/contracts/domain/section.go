package domain

import "strings"

// SectionKind identifies one recognized fragment type inside a dump file.
type SectionKind string

const (
	KindRobinhoodSales  SectionKind = "robinhood_sales"
	KindPersonalFinance SectionKind = "personal_finance"
	KindCryptoMovements SectionKind = "crypto_movements"
	KindBTCDailyPrices  SectionKind = "btc_daily_prices"
	KindLogicAppJSON    SectionKind = "logic_app_json"
	KindScriptableJS    SectionKind = "scriptable_js"
)

// OutputFormat defines the on-disk format a section materializes to.
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"
	FormatJSON OutputFormat = "json"
)

// GainsSummaryFileName is the file the derived capital-gains report is written to.
const GainsSummaryFileName = "robinhood_gains_summary.csv"

// WorkbookFileName is the combined XLSX workbook written when a run asks for one.
const WorkbookFileName = "dump_workbook.xlsx"

// Format returns the output format for the section kind. Structured kinds
// materialize as JSON documents, everything else as CSV tables.
func (k SectionKind) Format() OutputFormat {
	switch k {
	case KindLogicAppJSON, KindScriptableJS:
		return FormatJSON
	default:
		return FormatCSV
	}
}

// OutputFileName returns the file name a section of this kind is written to.
func (k SectionKind) OutputFileName() string {
	return string(k) + "." + string(k.Format())
}

// Section is one contiguous run of classified dump lines. Lines are stored
// verbatim, header first, in input order.
type Section struct {
	Kind  SectionKind `json:"kind"`
	Lines []string    `json:"lines"`
}

// Append adds a line to the section body.
func (s *Section) Append(line string) {
	s.Lines = append(s.Lines, line)
}

// Header returns the section's trigger line, or "" for an empty section.
func (s *Section) Header() string {
	if len(s.Lines) == 0 {
		return ""
	}
	return s.Lines[0]
}

// Text reassembles the section as a single newline-joined string.
func (s *Section) Text() string {
	return strings.Join(s.Lines, "\n")
}

// LineCount reports the number of captured lines including the header.
func (s *Section) LineCount() int {
	return len(s.Lines)
}

// SectionSet is an ordered collection of sections keyed by kind. Order is
// first appearance in the dump; re-registering a kind returns the existing
// section so interleaved fragments accumulate into one buffer.
type SectionSet struct {
	order  []SectionKind
	byKind map[SectionKind]*Section
}

// NewSectionSet returns an empty section set.
func NewSectionSet() *SectionSet {
	return &SectionSet{byKind: make(map[SectionKind]*Section)}
}

// GetOrCreate returns the section for kind, creating and ordering it on
// first sight.
func (set *SectionSet) GetOrCreate(kind SectionKind) *Section {
	if sec, ok := set.byKind[kind]; ok {
		return sec
	}
	sec := &Section{Kind: kind}
	set.byKind[kind] = sec
	set.order = append(set.order, kind)
	return sec
}

// Get looks up the section for kind.
func (set *SectionSet) Get(kind SectionKind) (*Section, bool) {
	sec, ok := set.byKind[kind]
	return sec, ok
}

// Kinds returns the registered kinds in first-appearance order.
func (set *SectionSet) Kinds() []SectionKind {
	out := make([]SectionKind, len(set.order))
	copy(out, set.order)
	return out
}

// Sections returns the sections in first-appearance order.
func (set *SectionSet) Sections() []*Section {
	out := make([]*Section, 0, len(set.order))
	for _, kind := range set.order {
		out = append(out, set.byKind[kind])
	}
	return out
}

// Len reports the number of registered sections.
func (set *SectionSet) Len() int {
	return len(set.order)
}
