package compress

import (
	"math"
	"strings"

	"github.com/hrygo/contextkit/message"
)

// Scoring weights. Base is what every message starts from; each signal adds
// its weight scaled by how strongly it fires.
const (
	scoreBase          = 0.5
	weightRecency      = 0.2
	weightLength       = 0.2
	weightSystemRole   = 0.2
	weightUserRole     = 0.1
	weightQuery        = 0.3
	weightQuestion     = 0.1
	weightErrorMention = 0.15
	weightCodeMarker   = 0.1

	// recencyDecay controls how fast the recency signal fades per step of
	// age from the newest message.
	recencyDecay = 0.1
	lengthCap    = 1000
)

// ScoreImportance scores every message in [0,1]: recency (exponential
// decay), length, role, optional query-word overlap, and content markers.
// The returned slice is index-aligned with msgs.
func (c *Compressor) ScoreImportance(msgs []message.Message, currentQuery string) []float64 {
	queryWords := significantWords(currentQuery)
	n := len(msgs)
	scores := make([]float64, n)

	for i, m := range msgs {
		score := scoreBase

		age := float64(n - 1 - i)
		score += weightRecency * math.Exp(-recencyDecay*age)

		length := len(m.Content)
		if length > lengthCap {
			length = lengthCap
		}
		score += weightLength * float64(length) / lengthCap

		switch m.Role {
		case message.RoleSystem:
			score += weightSystemRole
		case message.RoleUser:
			score += weightUserRole
		}

		lower := strings.ToLower(m.Content)
		if len(queryWords) > 0 {
			matched := 0
			for _, w := range queryWords {
				if strings.Contains(lower, w) {
					matched++
				}
			}
			score += weightQuery * float64(matched) / float64(len(queryWords))
		}

		if strings.Contains(lower, "?") {
			score += weightQuestion
		}
		if strings.Contains(lower, "error") || strings.Contains(lower, "warning") {
			score += weightErrorMention
		}
		if hasCodeMarkers(m.Content) {
			score += weightCodeMarker
		}

		if score > 1.0 {
			score = 1.0
		}
		scores[i] = score
	}

	return scores
}

// significantWords splits a query into lowercase words of three or more
// characters.
func significantWords(query string) []string {
	if query == "" {
		return nil
	}
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) >= 3 {
			words = append(words, f)
		}
	}
	return words
}

func hasCodeMarkers(text string) bool {
	if strings.Contains(text, "```") {
		return true
	}
	return strings.Contains(text, "{") && strings.Contains(text, "}")
}
