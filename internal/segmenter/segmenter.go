// Package segmenter splits a concatenated export dump into recognized
// sections. Classification is line based: an ordered rule list is evaluated
// against every line, the first matching rule opens (or re-opens) the section
// for its kind, and subsequent lines accumulate into whichever section is
// active. Lines seen before any rule has matched are dropped.
package segmenter

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"dumpsift/pkg/contracts/domain"
)

// Rule classifies a line as the start of a section. A rule triggers either on
// an exact line prefix or on a case-insensitive header pattern; prefix rules
// are cheaper and listed first in the default set.
type Rule struct {
	Kind    domain.SectionKind
	Prefix  string
	Pattern *regexp.Regexp
}

// Matches reports whether line triggers this rule.
func (r Rule) Matches(line string) bool {
	if r.Prefix != "" {
		return strings.HasPrefix(line, r.Prefix)
	}
	return r.Pattern != nil && r.Pattern.MatchString(line)
}

// Type returns the rule flavor for API listings.
func (r Rule) Type() string {
	if r.Prefix != "" {
		return "prefix"
	}
	return "header_pattern"
}

// Trigger returns the human-readable trigger: the prefix text or the pattern
// source.
func (r Rule) Trigger() string {
	if r.Prefix != "" {
		return r.Prefix
	}
	if r.Pattern != nil {
		return r.Pattern.String()
	}
	return ""
}

// DefaultRules returns the built-in recognizer set in match-priority order:
// the two structured-document prefixes first, then the tabular header
// patterns. Order is part of the contract; the first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: domain.KindLogicAppJSON, Prefix: `{"$schema"`},
		{Kind: domain.KindScriptableJS, Prefix: "// Variables used by Scriptable."},
		{
			Kind:    domain.KindRobinhoodSales,
			Pattern: regexp.MustCompile(`(?i)ASSET NAME,RECEIVED DATE,COST BASIS\(USD\),DATE SOLD,PROCEEDS`),
		},
		{
			Kind:    domain.KindPersonalFinance,
			Pattern: regexp.MustCompile(`(?i)Date,Original Date,Account Type,Account Name,Account Number,Institution Name`),
		},
		{
			Kind:    domain.KindCryptoMovements,
			Pattern: regexp.MustCompile(`(?i)Transaction,Type,Input Currency,Input Amount,Output Currency`),
		},
		{
			Kind:    domain.KindBTCDailyPrices,
			Pattern: regexp.MustCompile(`(?i)Start,End,Open,High,Low,Close,Volume,Market Cap`),
		},
	}
}

// maxLineSize bounds a single dump line. The bufio default of 64K is too
// small for minified JSON documents pasted as one line.
const maxLineSize = 1024 * 1024

// Segmenter classifies dump lines using an ordered rule list.
type Segmenter struct {
	rules  []Rule
	logger *slog.Logger
}

// New creates a Segmenter with the default rule set.
func New(logger *slog.Logger) *Segmenter {
	return NewWithRules(DefaultRules(), logger)
}

// NewWithRules creates a Segmenter with a caller-supplied rule list. Rules
// are evaluated in slice order.
func NewWithRules(rules []Rule, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{rules: rules, logger: logger}
}

// Rules returns the configured rule list in evaluation order.
func (s *Segmenter) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Describe lists the configured recognizers for API consumers, priority 0
// being checked first.
func (s *Segmenter) Describe() []domain.RecognizerInfo {
	out := make([]domain.RecognizerInfo, 0, len(s.rules))
	for i, rule := range s.rules {
		out = append(out, domain.RecognizerInfo{
			Kind:     rule.Kind,
			RuleType: rule.Type(),
			Trigger:  rule.Trigger(),
			Format:   rule.Kind.Format(),
			Priority: i,
		})
	}
	return out
}

// Segment reads the dump line by line and returns the recognized sections in
// first-appearance order. A dump with no recognizable content yields an empty
// set and no error; only read failures are reported.
func (s *Segmenter) Segment(r io.Reader) (*domain.SectionSet, error) {
	set := domain.NewSectionSet()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var current *domain.Section
	lineNo := 0
	dropped := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if rule, ok := s.match(line); ok {
			current = set.GetOrCreate(rule.Kind)
			current.Append(line)
			s.logger.Debug("section trigger matched",
				slog.String("kind", string(rule.Kind)),
				slog.Int("line", lineNo))
			continue
		}

		if current != nil {
			current.Append(line)
		} else {
			dropped++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning dump: %w", err)
	}

	s.logger.Info("dump segmented",
		slog.Int("lines", lineNo),
		slog.Int("sections", set.Len()),
		slog.Int("dropped_preamble_lines", dropped))
	return set, nil
}

// SegmentFile opens and segments the dump at path.
func (s *Segmenter) SegmentFile(path string) (*domain.SectionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump file %s: %w", path, err)
	}
	defer f.Close()

	set, err := s.Segment(f)
	if err != nil {
		return nil, fmt.Errorf("reading dump file %s: %w", path, err)
	}
	return set, nil
}

func (s *Segmenter) match(line string) (Rule, bool) {
	for _, rule := range s.rules {
		if rule.Matches(line) {
			return rule, true
		}
	}
	return Rule{}, false
}
