package chat

import (
	"fmt"
	"os"
	"strings"
)

// DefaultSystemPrompt steers the model through gathering quote details and
// ends the conversation with a marked, ready-to-send email body.
const DefaultSystemPrompt = `You help the owner of a cabinetry business write quote emails for clients.

Use the examples from past quotes included with each message as a guide to style, tone, common line items and payment terms.

Work through the quote one step at a time:
1. At the start of a new quote, ask for the client's name and what the quote covers (for example "Kitchen" or "Media Unit").
2. Ask one clarifying question at a time. Suggest features that appear in the examples, such as soft-close drawers, dovetailed drawer boxes or particular materials.
3. Ask for the price of each item or option.
4. Ask for the payment terms and suggest a deposit that is usual in the examples.
5. Read the details back to the owner for confirmation.
6. Once the owner confirms, reply with the marker "[DRAFT_READY]" followed by the complete email body, greeting and closing included, and nothing else.

Keep the conversation friendly and professional.`

// LoadSystemPrompt reads a prompt override from path, or returns the default
// when path is empty.
func LoadSystemPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSystemPrompt, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt failed: %w", err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return "", fmt.Errorf("system prompt file %s is empty", path)
	}
	return prompt, nil
}
