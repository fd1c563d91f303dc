package transcript

import (
	"strconv"
	"strings"
)

var (
	unitWords = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9,
	}
	teenWords = map[string]int{
		"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
		"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	}
	tensWords = map[string]int{
		"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
		"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	}
	ordinalPrefixes = map[string]string{
		"first": "1", "second": "2", "third": "3",
	}
	rangeWords = map[string]struct{}{
		"to": {}, "through": {}, "thru": {},
	}
)

// NormalizeSpokenReferences rewrites "<book> chapter N verse M [to K]" into "<book> N:M[-K]"
// and spoken ordinal book prefixes ("first john chapter ...") into digits. Other text is
// returned with whitespace collapsed.
func NormalizeSpokenReferences(text string) string {
	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		word := bareWord(tokens[i])

		if digit, ok := ordinalPrefixes[word]; ok && spokenCitationAt(tokens, i+2) {
			out = append(out, digit)
			continue
		}

		if word != "chapter" || len(out) == 0 {
			out = append(out, tokens[i])
			continue
		}

		citation, used, ok := parseCitation(tokens[i+1:])
		if !ok {
			out = append(out, tokens[i])
			continue
		}
		out = append(out, citation)
		i += used
	}

	return strings.Join(out, " ")
}

// spokenCitationAt reports whether tokens[i] is "chapter" followed by a parseable citation.
func spokenCitationAt(tokens []string, i int) bool {
	if i >= len(tokens) || bareWord(tokens[i]) != "chapter" {
		return false
	}
	_, _, ok := parseCitation(tokens[i+1:])
	return ok
}

// parseCitation reads "N [verse|verses M [to K]]" and reports tokens consumed.
func parseCitation(tokens []string) (string, int, bool) {
	chapter, used, ok := parseNumber(tokens)
	if !ok {
		return "", 0, false
	}
	citation := strconv.Itoa(chapter)

	rest := tokens[used:]
	if len(rest) == 0 || (bareWord(rest[0]) != "verse" && bareWord(rest[0]) != "verses") {
		return citation, used, true
	}

	verse, verseUsed, ok := parseNumber(rest[1:])
	if !ok {
		return citation, used, true
	}
	citation += ":" + strconv.Itoa(verse)
	used += 1 + verseUsed

	rest = tokens[used:]
	if len(rest) > 1 {
		if _, isRange := rangeWords[bareWord(rest[0])]; isRange {
			if end, endUsed, ok := parseNumber(rest[1:]); ok {
				citation += "-" + strconv.Itoa(end)
				used += 1 + endUsed
			}
		}
	}
	return citation, used, true
}

// parseNumber reads a cardinal below one thousand, spoken or in digits.
func parseNumber(tokens []string) (int, int, bool) {
	if len(tokens) == 0 {
		return 0, 0, false
	}
	if n, err := strconv.Atoi(bareWord(tokens[0])); err == nil && n > 0 {
		return n, 1, true
	}

	value, used := 0, 0
	word := func(i int) string {
		if i >= len(tokens) {
			return ""
		}
		return bareWord(tokens[i])
	}

	if u, ok := unitWords[word(0)]; ok && word(1) == "hundred" {
		value = u * 100
		used = 2
		if word(used) == "and" && isNumberWord(word(used+1)) {
			used++
		}
	}

	switch w := word(used); {
	case teenWords[w] > 0:
		value += teenWords[w]
		used++
	case tensWords[w] > 0:
		value += tensWords[w]
		used++
		if u, ok := unitWords[word(used)]; ok {
			value += u
			used++
		}
	case unitWords[w] > 0:
		value += unitWords[w]
		used++
	}

	if used == 0 {
		return 0, 0, false
	}
	return value, used, true
}

func isNumberWord(w string) bool {
	return unitWords[w] > 0 || teenWords[w] > 0 || tensWords[w] > 0
}

func bareWord(token string) string {
	return strings.ToLower(strings.Trim(token, ".,;:!?"))
}
