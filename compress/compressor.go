// Package compress reduces an oversized message set through summarization,
// importance filtering, deduplication, or a hybrid of the three.
package compress

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/hrygo/contextkit/message"
	"github.com/hrygo/contextkit/token"
)

// Strategy names a compression approach.
type Strategy string

const (
	StrategySummary    Strategy = "summary"
	StrategyImportance Strategy = "importance"
	StrategyDedup      Strategy = "dedup"
	StrategyHybrid     Strategy = "hybrid"
)

// historyCap bounds the in-memory compression record, FIFO.
const historyCap = 100

// ratioWindow is how many recent records feed the running ratio.
const ratioWindow = 20

// Params describes one compression request.
type Params struct {
	Messages []message.Message
	// TargetRatio is the desired compressed/original token ratio in (0,1].
	// Values outside that range fall back to the default 0.5.
	TargetRatio float64
	// Strategy defaults to hybrid when empty.
	Strategy Strategy
	// CurrentQuery biases importance scoring toward relevant messages.
	CurrentQuery string
}

// Result is the outcome of one compression pass. Original retains the full
// input for audit.
type Result struct {
	Messages             []message.Message
	Original             []message.Message
	OriginalTokenCount   int
	CompressedTokenCount int
	CompressionRatio     float64
	Strategy             Strategy
}

type record struct {
	originalTokens   int
	compressedTokens int
	at               time.Time
}

// Compressor applies compression strategies and keeps a bounded history of
// past ratios. Not safe for concurrent use: scope one per session.
type Compressor struct {
	estimator token.Estimator
	allocator *token.BudgetAllocator

	// FIFO ring of the last historyCap compression records.
	history []record
	next    int
	size    int
}

// NewCompressor creates a compressor using the given estimator (heuristic
// default when nil).
func NewCompressor(estimator token.Estimator) *Compressor {
	if estimator == nil {
		estimator = token.NewHeuristicEstimator()
	}
	return &Compressor{
		estimator: estimator,
		allocator: token.NewBudgetAllocator(estimator),
		history:   make([]record, historyCap),
	}
}

// Compress reduces p.Messages according to the chosen strategy. It never
// fails and never expands: when the hybrid path cannot reach the target it
// degrades to a single summary message, and the result is always capped at
// the original token cost.
func (c *Compressor) Compress(p Params) *Result {
	strategy := p.Strategy
	if strategy == "" {
		strategy = StrategyHybrid
	}
	ratio := p.TargetRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}

	original := p.Messages
	originalTokens := c.totalTokens(original)

	var compressed []message.Message
	switch strategy {
	case StrategySummary:
		compressed = c.cappedSummary(original, originalTokens)
	case StrategyImportance:
		compressed = c.filterByImportance(original, ratio, p.CurrentQuery)
	case StrategyDedup:
		compressed = c.Deduplicate(original)
	default:
		compressed = c.hybrid(original, originalTokens, ratio, p.CurrentQuery)
	}

	compressedTokens := c.totalTokens(compressed)
	c.record(originalTokens, compressedTokens)

	result := &Result{
		Messages:             compressed,
		Original:             original,
		OriginalTokenCount:   originalTokens,
		CompressedTokenCount: compressedTokens,
		CompressionRatio:     safeRatio(compressedTokens, originalTokens),
		Strategy:             strategy,
	}

	slog.Debug("context compressed",
		"strategy", string(strategy),
		"original_tokens", originalTokens,
		"compressed_tokens", compressedTokens,
		"ratio", result.CompressionRatio)

	return result
}

// hybrid deduplicates, filters survivors by importance toward the target
// ratio, and collapses to a single summary when the result still exceeds
// the target token cost. Survivors are a subset of the input, so on short
// conversations where the summary itself would cost more they win instead.
func (c *Compressor) hybrid(msgs []message.Message, originalTokens int, ratio float64, query string) []message.Message {
	survivors := c.Deduplicate(msgs)
	survivors = c.filterByImportance(survivors, ratio, query)

	target := int(math.Floor(float64(originalTokens) * ratio))
	survivorCost := c.totalTokens(survivors)
	if survivorCost <= target {
		return survivors
	}

	summary := c.summaryMessage(msgs)
	if c.totalTokens(summary) < survivorCost {
		return summary
	}
	return survivors
}

// cappedSummary builds the single-message summary and trims it so the
// replacement never costs more than the conversation it replaces.
func (c *Compressor) cappedSummary(msgs []message.Message, originalTokens int) []message.Message {
	budget := originalTokens
	if budget < 1 {
		budget = 1
	}
	summary := c.summaryMessage(msgs)
	if c.totalTokens(summary) > budget {
		summary[0].Content = c.allocator.TrimToFit(summary[0].Content, budget)
	}
	return summary
}

// filterByImportance keeps roughly ratio of the messages: the cutoff is the
// score at rank floor(n*ratio) of a descending sort, and every message
// scoring at or above it survives in order.
func (c *Compressor) filterByImportance(msgs []message.Message, ratio float64, query string) []message.Message {
	if len(msgs) == 0 {
		return nil
	}

	scores := c.ScoreImportance(msgs, query)
	cutoff := cutoffScore(scores, ratio)

	kept := make([]message.Message, 0, len(msgs))
	for i, m := range msgs {
		if scores[i] >= cutoff {
			kept = append(kept, m)
		}
	}
	return kept
}

func cutoffScore(scores []float64, ratio float64) float64 {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	rank := int(math.Floor(float64(len(sorted)) * ratio))
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}

func (c *Compressor) summaryMessage(msgs []message.Message) []message.Message {
	return []message.Message{{
		Role:      message.RoleSystem,
		Content:   c.Summarize(msgs),
		Timestamp: time.Now(),
	}}
}

func (c *Compressor) totalTokens(msgs []message.Message) int {
	total := 0
	for _, m := range msgs {
		total += c.estimator.Estimate(m.Content)
	}
	return total
}

// record appends a compression record, evicting the oldest past capacity.
func (c *Compressor) record(originalTokens, compressedTokens int) {
	c.history[c.next] = record{
		originalTokens:   originalTokens,
		compressedTokens: compressedTokens,
		at:               time.Now(),
	}
	c.next = (c.next + 1) % historyCap
	if c.size < historyCap {
		c.size++
	}
}

// HistoryLen returns the number of retained compression records.
func (c *Compressor) HistoryLen() int {
	return c.size
}

// CompressionRatio returns the mean compressed/original ratio over the most
// recent ratioWindow records, or 1.0 when none exist.
func (c *Compressor) CompressionRatio() float64 {
	n := c.size
	if n > ratioWindow {
		n = ratioWindow
	}
	if n == 0 {
		return 1.0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		idx := (c.next - 1 - i + historyCap) % historyCap
		r := c.history[idx]
		sum += safeRatio(r.compressedTokens, r.originalTokens)
	}
	return sum / float64(n)
}

func safeRatio(compressed, original int) float64 {
	if original <= 0 {
		return 1.0
	}
	return float64(compressed) / float64(original)
}
