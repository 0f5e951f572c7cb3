package resolver

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	tokenRe      = regexp.MustCompile(`[a-zA-Z0-9_-]+`)
)

// NormalizeText lower-cases, trims and collapses whitespace in user text
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(strings.TrimSpace(text))
	return whitespaceRe.ReplaceAllString(text, " ")
}

// Tokens extracts a token-presence set from text for quick membership tests
func Tokens(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		tokens[tok] = true
	}
	return tokens
}
