// Package reference extracts canonical scripture references from transcript text.
package reference

import (
	"fmt"
	"regexp"
	"strings"
)

// versePattern matches "<book> <chapter>:<verse>[-<end>]" where book may carry a 1-3 numeral prefix.
var versePattern = regexp.MustCompile(`\b([1-3]?\s?[A-Za-z]+)\s(\d{1,3}):(\d{1,3})(-\d{1,3})?\b`)

// Reference is one structured pointer to a scripture passage.
type Reference struct {
	Book     string `json:"book"`
	Chapter  string `json:"chapter"`
	Verse    string `json:"verse"`
	RangeEnd string `json:"range_end,omitempty"`
}

// String renders the canonical lookup form, e.g. "John 3:16-18".
func (r Reference) String() string {
	if r.Book == "" {
		return ""
	}
	s := fmt.Sprintf("%s %s:%s", r.Book, r.Chapter, r.Verse)
	if r.RangeEnd != "" {
		s += "-" + r.RangeEnd
	}
	return s
}

// Citation renders the display title in uppercase, e.g. "ROMANS 8:28 (WEB)".
func (r Reference) Citation(translation string) string {
	return strings.ToUpper(fmt.Sprintf("%s (%s)", r.String(), translation))
}

// IsZero reports whether r carries no reference.
func (r Reference) IsZero() bool {
	return r == Reference{}
}

// Extract returns the leftmost reference found in text.
//
// Only the first match is used. The book token has its whitespace removed and is otherwise
// returned as spoken: no case folding, abbreviation expansion, or book-name validation.
func Extract(text string) (Reference, bool) {
	match := versePattern.FindStringSubmatch(text)
	if match == nil {
		return Reference{}, false
	}

	return Reference{
		Book:     strings.Join(strings.Fields(match[1]), ""),
		Chapter:  match[2],
		Verse:    match[3],
		RangeEnd: strings.TrimPrefix(match[4], "-"),
	}, true
}

// Parse reads a reference typed by a user, rejecting input without one.
func Parse(raw string) (Reference, error) {
	ref, ok := Extract(strings.TrimSpace(raw))
	if !ok {
		return Reference{}, fmt.Errorf("no verse reference found in %q", raw)
	}
	return ref, nil
}
