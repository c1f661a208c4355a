package highlight

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Unit is one paragraph-level candidate from a page.
//
// Original is the trimmed source text and is what gets searched for on the
// page. Normalized is only ever used for scoring.
type Unit struct {
	Original   string
	Normalized string
}

var blankLineRe = regexp.MustCompile(`\r?\n[ \t\f\v]*\r?\n`)

// Normalize collapses whitespace runs to a single space, trims, and
// case-folds s.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(s))
}

// Segment splits page text on blank lines into candidate units, in source
// order. Whitespace-only paragraphs are dropped.
func Segment(pageText string) []Unit {
	if strings.TrimSpace(pageText) == "" {
		return nil
	}
	parts := blankLineRe.Split(pageText, -1)
	units := make([]Unit, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		units = append(units, Unit{Original: p, Normalized: Normalize(p)})
	}
	return units
}
