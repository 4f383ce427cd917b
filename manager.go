package contextkit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/contextkit/compress"
	"github.com/hrygo/contextkit/message"
	"github.com/hrygo/contextkit/token"
	"github.com/hrygo/contextkit/window"
)

// BuildContextRequest carries the inputs for one context build.
type BuildContextRequest struct {
	SystemPrompt        string
	ConversationHistory []message.Message
	// Schema, when set, is serialized and appended to the system block as a
	// JSON response instruction.
	Schema any
	// Examples are serialized into a numbered few-shot block.
	Examples []any
	// MaxTokens lowers the manager's ceiling for this call when positive.
	MaxTokens int
}

// BuildContextResult is the complete outcome of one build: the final
// message list for the model call plus the usage breakdown.
type BuildContextResult struct {
	Messages            []message.Message
	SystemPrompt        string
	ConversationHistory []message.Message
	TokenUsage          token.Allocation
	Stats               Stats
}

// Stats is a point-in-time snapshot of the manager's state.
type Stats struct {
	MessageCount     int
	TotalTokens      int
	AvailableTokens  int
	CompressionRatio float64
	LastUpdated      time.Time
}

// Manager orchestrates budget allocation, history selection, and
// compression for one session. It holds no locks: hosting environments
// must scope one Manager per session and serialize calls to it.
type Manager struct {
	cfg        Config
	estimator  token.Estimator
	allocator  *token.BudgetAllocator
	window     *window.RollingWindow
	compressor *compress.Compressor
	metrics    *Metrics

	lastUpdated time.Time
}

// NewManager creates a manager with the given configuration and the
// heuristic estimator.
func NewManager(cfg Config) *Manager {
	est := token.NewHeuristicEstimator()
	return &Manager{
		cfg:        cfg,
		estimator:  est,
		allocator:  newAllocator(est, cfg.MaxTokens, cfg.ReserveForResponse),
		window:     window.NewRollingWindow(est),
		compressor: compress.NewCompressor(est),
	}
}

// WithEstimator replaces the token estimation strategy across all
// components. Call before first use.
func (m *Manager) WithEstimator(est token.Estimator) *Manager {
	if est == nil {
		return m
	}
	m.estimator = est
	m.allocator = newAllocator(est, m.cfg.MaxTokens, m.cfg.ReserveForResponse)
	m.window = window.NewRollingWindow(est)
	m.compressor = compress.NewCompressor(est)
	return m
}

// WithMetrics attaches a Prometheus recorder.
func (m *Manager) WithMetrics(metrics *Metrics) *Manager {
	m.metrics = metrics
	return m
}

func newAllocator(est token.Estimator, maxTokens, reserve int) *token.BudgetAllocator {
	return token.NewBudgetAllocator(est).WithMaxTokens(maxTokens).WithReserve(reserve)
}

// BuildContext assembles the final message list for one model call. It
// either returns a complete, budget-respecting result or an error; there is
// no partial success and no retry.
func (m *Manager) BuildContext(req BuildContextRequest) (*BuildContextResult, error) {
	maxTokens := m.cfg.MaxTokens
	if req.MaxTokens > 0 && req.MaxTokens < maxTokens {
		maxTokens = req.MaxTokens
	}
	available := maxTokens - m.cfg.ReserveForResponse
	if available <= 0 {
		return nil, errors.Errorf(
			"build context: ceiling %d leaves no budget after response reserve %d",
			maxTokens, m.cfg.ReserveForResponse)
	}

	schemaBlock, err := renderSchema(req.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "build context: render schema")
	}
	systemContext := req.SystemPrompt
	if schemaBlock != "" {
		systemContext = req.SystemPrompt + "\n\n" + schemaBlock
	}

	examplesBlock, err := renderExamples(req.Examples)
	if err != nil {
		return nil, errors.Wrap(err, "build context: render examples")
	}

	systemTokens := m.estimator.Estimate(systemContext)
	examplesTokens := m.estimator.Estimate(examplesBlock)
	conversationBudget := available - systemTokens - examplesTokens
	if conversationBudget < 0 {
		return nil, errors.Errorf(
			"build context: prompt overhead %d tokens exceeds available budget %d",
			systemTokens+examplesTokens, available)
	}

	selected := m.window.SelectMessages(req.ConversationHistory, conversationBudget)

	msgs := make([]message.Message, 0, len(selected)+2)
	msgs = append(msgs, message.Message{
		Role:      message.RoleSystem,
		Content:   systemContext,
		Timestamp: time.Now(),
	})
	if examplesBlock != "" {
		msgs = append(msgs, message.Message{
			Role:      message.RoleSystem,
			Content:   examplesBlock,
			Timestamp: time.Now(),
		})
	}
	msgs = append(msgs, selected...)

	usage := m.tokenUsage(req, maxTokens, available, schemaBlock, examplesBlock, systemContext, msgs)

	m.lastUpdated = time.Now()
	stats := m.Stats()

	if m.metrics != nil {
		m.metrics.ObserveBuild(usage, len(msgs))
	}

	slog.Debug("context built",
		"messages", len(msgs),
		"history_selected", len(selected),
		"history_candidates", len(req.ConversationHistory),
		"tokens_used", usage.Used,
		"tokens_available", usage.Available)

	return &BuildContextResult{
		Messages:            msgs,
		SystemPrompt:        systemContext,
		ConversationHistory: selected,
		TokenUsage:          usage,
		Stats:               stats,
	}, nil
}

// tokenUsage computes the final breakdown. The allocator supplies the
// per-block split and compression ratio against the full history; used and
// remaining reflect the messages actually returned.
func (m *Manager) tokenUsage(req BuildContextRequest, maxTokens, available int,
	schemaBlock, examplesBlock, systemContext string, final []message.Message) token.Allocation {

	history := make([]string, len(req.ConversationHistory))
	for i, msg := range req.ConversationHistory {
		history[i] = msg.Content
	}

	alloc := newAllocator(m.estimator, maxTokens, m.cfg.ReserveForResponse).Allocate(token.AllocateParams{
		System:   req.SystemPrompt,
		Schema:   schemaBlock,
		Examples: examplesBlock,
		History:  history,
	})

	used := 0
	for _, msg := range final {
		used += m.estimator.Estimate(msg.Content)
	}
	alloc.Used = used
	alloc.Remaining = available - used
	if alloc.Remaining < 0 {
		alloc.Remaining = 0
	}
	// The concatenated system block can estimate differently than its parts.
	alloc.System = m.estimator.Estimate(systemContext) - alloc.Schema
	if alloc.System < 0 {
		alloc.System = 0
	}
	return alloc
}

// AddMessage admits a message to the stateful history log with
// default-computed importance.
func (m *Manager) AddMessage(msg message.Message) {
	m.window.Add(msg)
	m.lastUpdated = time.Now()
}

// AddMessageScored admits a message with explicit importance and pin state.
func (m *Manager) AddMessageScored(msg message.Message, importance float64, pinned bool) {
	m.window.AddScored(msg, importance, pinned)
	m.lastUpdated = time.Now()
}

// ClearHistory resets the stateful history log.
func (m *Manager) ClearHistory() {
	m.window.Clear()
	m.lastUpdated = time.Now()
}

// History returns the logged messages in admission order.
func (m *Manager) History() []message.Message {
	return m.window.Messages()
}

// CompressContext summarizes the full stateful history. The log itself is
// left untouched; persisting or replacing history is the caller's call.
func (m *Manager) CompressContext() *compress.Result {
	result := m.compressor.Compress(compress.Params{
		Messages:    m.window.Messages(),
		TargetRatio: m.cfg.CompressionThreshold,
		Strategy:    compress.StrategySummary,
	})
	if m.metrics != nil {
		m.metrics.ObserveCompression(result)
	}
	return result
}

// Compress runs an arbitrary compression pass over the supplied messages
// using the manager's compressor and estimator.
func (m *Manager) Compress(p compress.Params) *compress.Result {
	result := m.compressor.Compress(p)
	if m.metrics != nil {
		m.metrics.ObserveCompression(result)
	}
	return result
}

// Stats returns a snapshot of the manager's state.
func (m *Manager) Stats() Stats {
	total := 0
	for _, msg := range m.window.Messages() {
		total += m.estimator.Estimate(msg.Content)
	}
	return Stats{
		MessageCount:     m.window.Count(),
		TotalTokens:      total,
		AvailableTokens:  m.allocator.AvailableTokens(),
		CompressionRatio: m.compressor.CompressionRatio(),
		LastUpdated:      m.lastUpdated,
	}
}

// renderSchema serializes a response schema into a system instruction
// block. Nil schema renders nothing.
func renderSchema(schema any) (string, error) {
	if schema == nil {
		return "", nil
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "serialize response schema")
	}
	return "Respond with JSON matching this schema:\n```json\n" + string(data) + "\n```", nil
}

// renderExamples serializes few-shot examples into a numbered block. Empty
// input renders nothing.
func renderExamples(examples []any) (string, error) {
	if len(examples) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("Examples:\n")
	for i, ex := range examples {
		data, err := json.Marshal(ex)
		if err != nil {
			return "", errors.Wrapf(err, "serialize example %d", i+1)
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, data)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
