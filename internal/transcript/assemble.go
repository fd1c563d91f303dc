// Package transcript assembles recognized ASR segments into one cumulative transcript.
package transcript

import "strings"

// Options controls transcript assembly formatting behavior.
type Options struct {
	TrailingSpace bool
	// SpokenReferences rewrites spoken citations such as "romans chapter eight verse
	// twenty eight" into written form ("romans 8:28").
	SpokenReferences bool
}

// Assemble joins ASR segments and applies configured normalization.
func Assemble(segments []string, opts Options) string {
	if len(segments) == 0 {
		return ""
	}

	normalized := strings.Join(strings.Fields(strings.Join(segments, " ")), " ")
	if normalized == "" {
		return ""
	}

	if opts.SpokenReferences {
		normalized = NormalizeSpokenReferences(normalized)
	}

	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}
