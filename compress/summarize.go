package compress

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hrygo/contextkit/message"
)

const maxSummaryItems = 5

// topicVocabulary are the nouns worth surfacing from user messages.
var topicVocabulary = []string{
	"login", "signup", "auth", "page", "form", "button", "api", "endpoint",
	"database", "schema", "table", "query", "user", "profile", "dashboard",
	"report", "chart", "test", "deploy", "config", "server", "client",
	"error", "bug", "feature", "component", "service", "payment", "email",
}

// topicPattern catches "about/regarding/for <noun>" phrasing.
var topicPattern = regexp.MustCompile(`(?i)\b(?:about|regarding|for)\s+(?:the\s+|a\s+|an\s+)?([a-z][a-z0-9_-]{2,})`)

// actionPatterns extract what the assistant reported doing.
var actionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(created|updated|deleted|implemented|fixed|generated)\s+(?:the\s+|a\s+|an\s+)?([a-z][a-z0-9_ -]{2,30}?)(?:[.,;!\n]|$)`),
}

// Summarize produces a single deterministic summary line for a message set:
// role counts, up to five user topics, up to five assistant actions. Purely
// local, no model call.
func (c *Compressor) Summarize(msgs []message.Message) string {
	if len(msgs) == 0 {
		return "Empty conversation."
	}

	var systemCount, userCount, assistantCount int
	var userText, assistantText strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case message.RoleSystem:
			systemCount++
		case message.RoleUser:
			userCount++
			userText.WriteString(m.Content)
			userText.WriteString("\n")
		case message.RoleAssistant:
			assistantCount++
			assistantText.WriteString(m.Content)
			assistantText.WriteString("\n")
		}
	}

	parts := []string{fmt.Sprintf(
		"Conversation summary: %d messages (%d system, %d user, %d assistant).",
		len(msgs), systemCount, userCount, assistantCount)}

	if topics := extractTopics(userText.String()); len(topics) > 0 {
		parts = append(parts, "Topics: "+strings.Join(topics, ", ")+".")
	}
	if actions := extractActions(assistantText.String()); len(actions) > 0 {
		parts = append(parts, "Actions: "+strings.Join(actions, "; ")+".")
	}

	return strings.Join(parts, " ")
}

// extractTopics collects up to five unique topic keywords from user text,
// first from the fixed vocabulary, then from about/regarding/for phrases.
func extractTopics(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	topics := make([]string, 0, maxSummaryItems)

	for _, word := range topicVocabulary {
		if len(topics) >= maxSummaryItems {
			return topics
		}
		if containsWord(lower, word) && !seen[word] {
			seen[word] = true
			topics = append(topics, word)
		}
	}

	for _, m := range topicPattern.FindAllStringSubmatch(lower, -1) {
		if len(topics) >= maxSummaryItems {
			break
		}
		noun := strings.TrimSpace(m[1])
		if noun != "" && !seen[noun] {
			seen[noun] = true
			topics = append(topics, noun)
		}
	}

	return topics
}

// extractActions collects up to five verb+object phrases from assistant text.
func extractActions(text string) []string {
	seen := make(map[string]bool)
	actions := make([]string, 0, maxSummaryItems)

	for _, p := range actionPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if len(actions) >= maxSummaryItems {
				return actions
			}
			phrase := strings.ToLower(strings.TrimSpace(m[1] + " " + strings.TrimSpace(m[2])))
			if !seen[phrase] {
				seen[phrase] = true
				actions = append(actions, phrase)
			}
		}
	}

	return actions
}

// containsWord reports a whole-word match, so "user" does not fire on
// "username".
func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
