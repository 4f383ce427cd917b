// Package window selects a recency-biased subset of conversation history
// that fits a token ceiling.
package window

import (
	"log/slog"
	"sort"
	"time"

	"github.com/hrygo/contextkit/message"
	"github.com/hrygo/contextkit/token"
)

// headroomRatio stops selection once the running total reaches this share
// of the budget, leaving slack for estimation error.
const headroomRatio = 0.9

// Entry wraps a message admitted to the stateful log with its retention
// metadata.
type Entry struct {
	Message    message.Message
	Timestamp  time.Time
	Importance float64
	Pinned     bool
}

// RollingWindow implements recency-based history selection. Selection over
// a caller-supplied slice is stateless; the internal log only grows through
// Add/AddScored. Not safe for concurrent use: callers scope one instance
// per session.
type RollingWindow struct {
	estimator token.Estimator
	entries   []Entry
}

// NewRollingWindow creates a window strategy using the given estimator
// (heuristic default when nil).
func NewRollingWindow(estimator token.Estimator) *RollingWindow {
	if estimator == nil {
		estimator = token.NewHeuristicEstimator()
	}
	return &RollingWindow{estimator: estimator}
}

// Add appends a message to the log with default-computed importance.
func (w *RollingWindow) Add(msg message.Message) {
	w.AddScored(msg, DefaultImportance(msg), false)
}

// AddScored appends a message with explicit importance and pin state.
// Importance outside [0,1] is clamped.
func (w *RollingWindow) AddScored(msg message.Message, importance float64, pinned bool) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	w.entries = append(w.entries, Entry{
		Message:    msg,
		Timestamp:  ts,
		Importance: clamp01(importance),
		Pinned:     pinned,
	})
}

// SelectMessages picks the most recent messages whose summed estimated cost
// stays within maxTokens, walking newest to oldest and stopping early once
// the running total reaches the headroom mark. Survivors come back in
// chronological order.
func (w *RollingWindow) SelectMessages(msgs []message.Message, maxTokens int) []message.Message {
	if len(msgs) == 0 || maxTokens <= 0 {
		return nil
	}

	headroom := int(float64(maxTokens) * headroomRatio)
	used := 0
	start := len(msgs)

	for i := len(msgs) - 1; i >= 0; i-- {
		cost := w.estimator.Estimate(msgs[i].Content)
		if used+cost > maxTokens {
			break
		}
		used += cost
		start = i
		if used >= headroom {
			break
		}
	}

	if start >= len(msgs) {
		return nil
	}

	selected := make([]message.Message, len(msgs)-start)
	copy(selected, msgs[start:])

	slog.Debug("rolling window selection",
		"candidates", len(msgs),
		"selected", len(selected),
		"tokens_used", used,
		"max_tokens", maxTokens)

	return selected
}

// SelectByImportance packs entries by importance (recency breaks ties)
// within maxTokens, then restores chronological order. Unlike the default
// path it will skip an oversized entry and keep packing smaller ones.
func (w *RollingWindow) SelectByImportance(entries []Entry, maxTokens int) []message.Message {
	if len(entries) == 0 || maxTokens <= 0 {
		return nil
	}

	type candidate struct {
		Entry
		index int
	}
	ranked := make([]candidate, len(entries))
	for i, e := range entries {
		ranked[i] = candidate{Entry: e, index: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Importance != ranked[j].Importance {
			return ranked[i].Importance > ranked[j].Importance
		}
		return ranked[i].Timestamp.After(ranked[j].Timestamp)
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

// All returns a copy of the log.
func (w *RollingWindow) All() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Messages returns the logged messages in admission order.
func (w *RollingWindow) Messages() []message.Message {
	out := make([]message.Message, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.Message
	}
	return out
}

// Clear resets the log.
func (w *RollingWindow) Clear() {
	w.entries = nil
}

// Count returns the number of logged entries.
func (w *RollingWindow) Count() int {
	return len(w.entries)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
