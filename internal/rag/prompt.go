package rag

import (
	"strconv"
	"strings"
)

// DraftMarker opens a model reply that carries the final email body.
const DraftMarker = "[DRAFT_READY]"

const (
	examplesHeader      = "--- RELEVANT EXAMPLES FROM PAST QUOTES ---"
	conversationDivider = "--- CURRENT CONVERSATION ---"
	userMessageLabel    = "User's message: "
)

// Compose builds the augmented prompt: a header, each retrieved document as a
// numbered example in the given order, a divider, then the user's message.
func Compose(retrieved []string, userMessage string) string {
	var b strings.Builder
	b.WriteString(examplesHeader)
	b.WriteString("\n")
	for i, doc := range retrieved {
		b.WriteString("\n--- Example ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" ---\n")
		b.WriteString(doc)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(conversationDivider)
	b.WriteString("\n")
	b.WriteString(userMessageLabel)
	b.WriteString(userMessage)
	return b.String()
}

// SplitDraft reports whether reply is a finished draft and returns the body
// with the marker and surrounding whitespace removed.
func SplitDraft(reply string) (string, bool) {
	trimmed := strings.TrimLeft(reply, " \t\r\n")
	if !strings.HasPrefix(trimmed, DraftMarker) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, DraftMarker)), true
}

// StripDraftMarker removes a leading marker if present and leaves anything
// else untouched.
func StripDraftMarker(content string) string {
	if body, ok := SplitDraft(content); ok {
		return body
	}
	return content
}
