package models

import "strings"

// Suggestions are the quick-reply chips offered while the greeting is the only message.
var Suggestions = []string{
	"💍 Wedding Packages",
	"💸 Pricing details",
	"📸 Portrait sessions",
	"📞 Get in touch",
}

// SuggestionDraft returns the draft text for a suggestion chip: the label without its leading emoji token.
// Labels without a space are returned unchanged.
func SuggestionDraft(label string) string {
	label = strings.TrimSpace(label)
	_, rest, ok := strings.Cut(label, " ")
	if !ok {
		return label
	}
	return strings.TrimSpace(rest)
}

// ShowSuggestions reports whether the suggestion chips belong on screen for messages.
func ShowSuggestions(messages []Message) bool {
	return len(messages) == 1
}
