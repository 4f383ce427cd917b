package window

import (
	"math"
	"sort"
	"strings"

	"github.com/hrygo/contextkit/message"
)

// DefaultImportance scores a message in [0,1] from role, length, and a few
// content markers. Used when Add admits a message without an explicit score.
func DefaultImportance(msg message.Message) float64 {
	score := 0.5

	switch msg.Role {
	case message.RoleSystem:
		score += 0.2
	case message.RoleUser, message.RoleAssistant:
		score += 0.2
	}

	length := len(msg.Content)
	if length > 1000 {
		length = 1000
	}
	score += float64(length) / 1000 * 0.2

	lower := strings.ToLower(msg.Content)
	if strings.Contains(lower, "?") {
		score += 0.1
	}
	if strings.Contains(lower, "error") {
		score += 0.2
	}

	return clamp01(score)
}

// PinOptions configures the pin-aware selection variant.
type PinOptions struct {
	// PinRecent always keeps the N most recent entries, budget permitting.
	PinRecent int
	// ImportanceDecay multiplies importance per step of age, newest first.
	// Values outside (0,1] disable decay.
	ImportanceDecay float64
}

// SelectPinned is the pin-aware alternate to SelectByImportance: pinned
// entries and the PinRecent newest are packed first, the rest by
// age-decayed importance. Survivors are returned chronologically.
func (w *RollingWindow) SelectPinned(entries []Entry, maxTokens int, opts PinOptions) []message.Message {
	if len(entries) == 0 || maxTokens <= 0 {
		return nil
	}

	decay := opts.ImportanceDecay
	if decay <= 0 || decay > 1 {
		decay = 1
	}

	type candidate struct {
		Entry
		index  int
		forced bool
		score  float64
	}

	ranked := make([]candidate, len(entries))
	for i, e := range entries {
		age := len(entries) - 1 - i
		ranked[i] = candidate{
			Entry:  e,
			index:  i,
			forced: e.Pinned || age < opts.PinRecent,
			score:  e.Importance * math.Pow(decay, float64(age)),
		}
	}

	// Forced entries first (newest leading), then by decayed score.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].forced != ranked[j].forced {
			return ranked[i].forced
		}
		if ranked[i].forced {
			return ranked[i].index > ranked[j].index
		}
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].index > ranked[j].index
	})

	used := 0
	picked := make([]candidate, 0, len(ranked))
	for _, c := range ranked {
		cost := w.estimator.Estimate(c.Message.Content)
		if used+cost > maxTokens {
			continue
		}
		used += cost
		picked = append(picked, c)
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].index < picked[j].index })

	selected := make([]message.Message, len(picked))
	for i, c := range picked {
		selected[i] = c.Message
	}
	return selected
}
