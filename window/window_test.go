package window

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/contextkit/message"
	"github.com/hrygo/contextkit/token"
)

// hundredTokens builds a message whose content estimates to exactly 100
// tokens (400 plain chars at 4 chars/token).
func hundredTokens(word string, ts time.Time) message.Message {
	return message.Message{
		Role:      message.RoleUser,
		Content:   strings.Repeat(word+" ", 400/(len(word)+1)),
		Timestamp: ts,
	}
}

func TestRollingWindow_SelectMessages(t *testing.T) {
	w := NewRollingWindow(nil)
	est := token.NewHeuristicEstimator()
	base := time.Now()

	t.Run("Keeps the most recent messages within budget", func(t *testing.T) {
		msgs := []message.Message{
			hundredTokens("old", base),
			hundredTokens("mid", base.Add(time.Minute)),
			hundredTokens("new", base.Add(2*time.Minute)),
		}

		selected := w.SelectMessages(msgs, 250)

		require.Len(t, selected, 2)
		assert.Equal(t, msgs[1].Content, selected[0].Content)
		assert.Equal(t, msgs[2].Content, selected[1].Content)
	})

	t.Run("Empty input", func(t *testing.T) {
		assert.Nil(t, w.SelectMessages(nil, 100))
	})

	t.Run("Zero budget", func(t *testing.T) {
		msgs := []message.Message{hundredTokens("one", base)}
		assert.Nil(t, w.SelectMessages(msgs, 0))
	})

	t.Run("Selection length grows with budget", func(t *testing.T) {
		msgs := make([]message.Message, 8)
		for i := range msgs {
			msgs[i] = hundredTokens("msg", base.Add(time.Duration(i)*time.Minute))
		}

		prev := 0
		for budget := 0; budget <= 1000; budget += 50 {
			n := len(w.SelectMessages(msgs, budget))
			assert.GreaterOrEqual(t, n, prev, "budget %d", budget)
			prev = n
		}
	})

	t.Run("Budget compliance", func(t *testing.T) {
		msgs := []message.Message{
			{Role: message.RoleUser, Content: "short one"},
			{Role: message.RoleAssistant, Content: strings.Repeat("a longer answer with detail ", 20)},
			{Role: message.RoleUser, Content: "follow-up question about the answer?"},
			{Role: message.RoleAssistant, Content: strings.Repeat("more detail ", 40)},
		}

		for _, budget := range []int{10, 50, 100, 500} {
			total := 0
			for _, m := range w.SelectMessages(msgs, budget) {
				total += est.Estimate(m.Content)
			}
			assert.LessOrEqual(t, total, budget, "budget %d", budget)
		}
	})

	t.Run("Chronological order preserved", func(t *testing.T) {
		msgs := make([]message.Message, 6)
		for i := range msgs {
			msgs[i] = message.Message{
				Role:      message.RoleUser,
				Content:   strings.Repeat("x", i+1),
				Timestamp: base.Add(time.Duration(i) * time.Second),
			}
		}

		selected := w.SelectMessages(msgs, 1000)
		for i := 1; i < len(selected); i++ {
			assert.True(t, selected[i].Timestamp.After(selected[i-1].Timestamp))
		}
	})

	t.Run("Stops at headroom before filling the budget", func(t *testing.T) {
		msgs := make([]message.Message, 12)
		for i := range msgs {
			msgs[i] = hundredTokens("pad", base.Add(time.Duration(i)*time.Minute))
		}

		// 100-token messages against a 1000-token budget: the walk stops
		// once 900 tokens are reached, not at 10 messages.
		selected := w.SelectMessages(msgs, 1000)
		assert.Len(t, selected, 9)
	})
}

func TestRollingWindow_SelectByImportance(t *testing.T) {
	w := NewRollingWindow(nil)
	base := time.Now()

	entry := func(content string, importance float64, offset time.Duration) Entry {
		return Entry{
			Message:    message.Message{Role: message.RoleUser, Content: content, Timestamp: base.Add(offset)},
			Timestamp:  base.Add(offset),
			Importance: importance,
		}
	}

	t.Run("High importance wins over recency", func(t *testing.T) {
		entries := []Entry{
			entry(strings.Repeat("important ", 4), 0.9, 0),
			entry(strings.Repeat("filler ", 6), 0.1, time.Minute),
			entry(strings.Repeat("also filler ", 4), 0.1, 2*time.Minute),
		}

		selected := w.SelectByImportance(entries, 12)
		require.Len(t, selected, 1)
		assert.Contains(t, selected[0].Content, "important")
	})

	t.Run("Survivors restored to chronological order", func(t *testing.T) {
		entries := []Entry{
			entry("first", 0.5, 0),
			entry("second", 0.9, time.Minute),
			entry("third", 0.7, 2*time.Minute),
		}

		selected := w.SelectByImportance(entries, 1000)
		require.Len(t, selected, 3)
		assert.Equal(t, "first", selected[0].Content)
		assert.Equal(t, "second", selected[1].Content)
		assert.Equal(t, "third", selected[2].Content)
	})

	t.Run("Oversized entry skipped, smaller ones packed", func(t *testing.T) {
		entries := []Entry{
			entry(strings.Repeat("huge ", 200), 0.9, 0),
			entry("tiny", 0.5, time.Minute),
		}

		selected := w.SelectByImportance(entries, 10)
		require.Len(t, selected, 1)
		assert.Equal(t, "tiny", selected[0].Content)
	})
}

func TestRollingWindow_Log(t *testing.T) {
	t.Run("Add computes default importance", func(t *testing.T) {
		w := NewRollingWindow(nil)
		w.Add(message.User("is there an error here?"))

		entries := w.All()
		require.Len(t, entries, 1)
		assert.Greater(t, entries[0].Importance, 0.5)
		assert.False(t, entries[0].Pinned)
	})

	t.Run("AddScored clamps importance", func(t *testing.T) {
		w := NewRollingWindow(nil)
		w.AddScored(message.User("a"), 2.5, true)
		w.AddScored(message.User("b"), -1, false)

		entries := w.All()
		require.Len(t, entries, 2)
		assert.Equal(t, 1.0, entries[0].Importance)
		assert.True(t, entries[0].Pinned)
		assert.Equal(t, 0.0, entries[1].Importance)
	})

	t.Run("Clear and Count", func(t *testing.T) {
		w := NewRollingWindow(nil)
		w.Add(message.User("one"))
		w.Add(message.Assistant("two"))
		assert.Equal(t, 2, w.Count())

		w.Clear()
		assert.Equal(t, 0, w.Count())
		assert.Empty(t, w.All())
	})

	t.Run("All returns a copy", func(t *testing.T) {
		w := NewRollingWindow(nil)
		w.Add(message.User("original"))

		entries := w.All()
		entries[0].Message.Content = "mutated"
		assert.Equal(t, "original", w.All()[0].Message.Content)
	})
}

func TestDefaultImportance(t *testing.T) {
	t.Run("Base score for unknown role", func(t *testing.T) {
		score := DefaultImportance(message.Message{Role: "tool", Content: ""})
		assert.InDelta(t, 0.5, score, 0.001)
	})

	t.Run("Role bonus", func(t *testing.T) {
		score := DefaultImportance(message.Message{Role: message.RoleSystem})
		assert.InDelta(t, 0.7, score, 0.001)
	})

	t.Run("Question and error mentions clamp at one", func(t *testing.T) {
		score := DefaultImportance(message.User("why does this error happen?"))
		assert.Equal(t, 1.0, score)
	})

	t.Run("Length contributes up to its cap", func(t *testing.T) {
		short := DefaultImportance(message.User("hi"))
		long := DefaultImportance(message.User(strings.Repeat("detail ", 200)))
		assert.Greater(t, long, short)
	})
}

func TestRollingWindow_SelectPinned(t *testing.T) {
	w := NewRollingWindow(nil)
	base := time.Now()

	entry := func(content string, importance float64, pinned bool, offset time.Duration) Entry {
		return Entry{
			Message:    message.Message{Role: message.RoleUser, Content: content, Timestamp: base.Add(offset)},
			Timestamp:  base.Add(offset),
			Importance: importance,
			Pinned:     pinned,
		}
	}

	t.Run("Pinned entry survives over higher-importance unpinned", func(t *testing.T) {
		entries := []Entry{
			entry("pinned note", 0.1, true, 0),
			entry("loud but unpinned", 0.9, false, time.Minute),
			entry("recent", 0.9, false, 2*time.Minute),
		}

		selected := w.SelectPinned(entries, 8, PinOptions{})
		require.NotEmpty(t, selected)
		assert.Equal(t, "pinned note", selected[0].Content)
	})

	t.Run("PinRecent keeps the newest entries", func(t *testing.T) {
		entries := []Entry{
			entry("ancient conversation details from long ago", 0.9, false, 0),
			entry("newer", 0.1, false, time.Minute),
			entry("newest", 0.1, false, 2*time.Minute),
		}

		selected := w.SelectPinned(entries, 6, PinOptions{PinRecent: 2})
		require.Len(t, selected, 2)
		assert.Equal(t, "newer", selected[0].Content)
		assert.Equal(t, "newest", selected[1].Content)
	})

	t.Run("Decay favors recent entries at equal importance", func(t *testing.T) {
		entries := []Entry{
			entry("older entry text", 0.8, false, 0),
			entry("newer entry text", 0.8, false, time.Minute),
		}

		selected := w.SelectPinned(entries, 4, PinOptions{ImportanceDecay: 0.5})
		require.Len(t, selected, 1)
		assert.Equal(t, "newer entry text", selected[0].Content)
	})
}

// Benchmark_SelectMessages benchmarks the default reverse-greedy walk.
func Benchmark_SelectMessages(b *testing.B) {
	w := NewRollingWindow(nil)
	msgs := make([]message.Message, 200)
	for i := range msgs {
		msgs[i] = message.Message{Role: message.RoleUser, Content: strings.Repeat("conversation text ", 10)}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.SelectMessages(msgs, 2000)
	}
}
