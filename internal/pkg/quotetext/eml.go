package quotetext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"
)

// FromEML returns the message subject and its body. A multipart message
// contributes its first text/plain part in depth-first order, or the text of
// its first text/html part when there is no plain one. A single-part message
// contributes its decoded payload.
func FromEML(raw []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse eml failed: %w", err)
	}
	subject := env.GetHeader("Subject")

	root := env.Root
	if root == nil {
		return Document(subject, ""), nil
	}
	if root.FirstChild == nil {
		return Document(subject, string(root.Content)), nil
	}

	if part := firstPart(root, "text/plain"); part != nil {
		return Document(subject, string(part.Content)), nil
	}
	if part := firstPart(root, "text/html"); part != nil {
		body, err := HTMLToText(string(part.Content))
		if err != nil {
			return "", err
		}
		return Document(subject, body), nil
	}
	return Document(subject, ""), nil
}

func firstPart(p *enmime.Part, contentType string) *enmime.Part {
	for ; p != nil; p = p.NextSibling {
		if strings.EqualFold(p.ContentType, contentType) {
			return p
		}
		if found := firstPart(p.FirstChild, contentType); found != nil {
			return found
		}
	}
	return nil
}
