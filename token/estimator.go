// Package token provides heuristic token estimation and budget allocation
// for bounded-size prompt construction.
package token

import (
	"math"
	"strings"
	"unicode"
)

// Language hints for estimation. Auto lets the estimator classify the text.
type Language string

const (
	LanguageAuto    Language = ""
	LanguageCode    Language = "code"
	LanguageCJK     Language = "cjk"
	LanguageEnglish Language = "en"
)

// Characters-per-token ratios by text class. Code packs denser than prose
// because identifiers and punctuation split into more tokens.
const (
	charsPerTokenCode    = 3.3
	charsPerTokenCJK     = 2.0
	charsPerTokenDefault = 4.0
)

// Estimator converts text into an approximate token count. Implementations
// must be pure: same input, same output, no failure mode.
type Estimator interface {
	Estimate(text string) int
}

// HeuristicEstimator estimates token counts from character ratios and
// content markers. It is not a tokenizer; it exists so budget and selection
// logic stay independent of any model-specific encoding.
type HeuristicEstimator struct{}

// NewHeuristicEstimator creates the default character-ratio estimator.
func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{}
}

// Estimate returns the approximate token count of text, classifying it
// automatically.
func (e *HeuristicEstimator) Estimate(text string) int {
	return e.EstimateWithHint(text, LanguageAuto)
}

// EstimateWithHint estimates with an explicit language hint, bypassing
// classification. Empty text is always 0 tokens.
func (e *HeuristicEstimator) EstimateWithHint(text string, hint Language) int {
	if text == "" {
		return 0
	}

	runes := []rune(text)
	charsPerToken := ratioFor(classify(text, runes, hint))

	chars := float64(len(runes))
	// Structural braces and markdown markers cost extra tokens relative to
	// plain prose of the same length.
	if strings.ContainsAny(text, "{}") {
		chars *= 1.05
	}
	if strings.Contains(text, "#") || strings.Contains(text, "```") {
		chars *= 1.02
	}

	tokens := chars / charsPerToken

	for _, r := range runes {
		if isSpecialRune(r) {
			tokens += 0.1
		}
	}

	return int(math.Ceil(tokens))
}

func ratioFor(lang Language) float64 {
	switch lang {
	case LanguageCode:
		return charsPerTokenCode
	case LanguageCJK:
		return charsPerTokenCJK
	default:
		return charsPerTokenDefault
	}
}

// classify buckets text as code-like, CJK, or default prose.
func classify(text string, runes []rune, hint Language) Language {
	if hint != LanguageAuto {
		return hint
	}
	if strings.ContainsAny(text, "{}()[]<>,;:") {
		return LanguageCode
	}
	cjk := 0
	for _, r := range runes {
		if isCJK(r) {
			cjk++
		}
	}
	// Mostly-CJK text tokenizes at roughly two characters per token.
	if cjk*3 > len(runes) {
		return LanguageCJK
	}
	return LanguageEnglish
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// isSpecialRune reports whether r is outside word characters, whitespace,
// and CJK scripts. Each such rune adds a fractional token.
func isSpecialRune(r rune) bool {
	if unicode.IsSpace(r) || isCJK(r) {
		return false
	}
	if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return true
}
