package compress

import (
	"strings"
	"unicode"

	"github.com/hrygo/contextkit/message"
)

// jaccardThreshold is the word-set similarity above which a message counts
// as a duplicate of an earlier one.
const jaccardThreshold = 0.85

// Deduplicate drops messages whose normalized word sets are near-identical
// to an earlier survivor. Order is preserved and the operation is
// idempotent.
func (c *Compressor) Deduplicate(msgs []message.Message) []message.Message {
	if len(msgs) <= 1 {
		return msgs
	}

	kept := make([]message.Message, 0, len(msgs))
	signatures := make([]map[string]bool, 0, len(msgs))

	for _, m := range msgs {
		sig := wordSet(normalize(m.Content))

		dup := false
		for _, accepted := range signatures {
			if jaccard(sig, accepted) > jaccardThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		kept = append(kept, m)
		signatures = append(signatures, sig)
	}

	return kept
}

// normalize lowercases, strips punctuation, and collapses whitespace into a
// comparison signature.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func wordSet(signature string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(signature) {
		set[w] = true
	}
	return set
}

// jaccard computes |a∩b| / |a∪b|; two empty sets count as identical.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}
