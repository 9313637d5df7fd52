// Package quotetext turns downloaded quote files into corpus documents of the
// form "Subject: <subject>\n\n<body>".
package quotetext

import (
	"fmt"
	"path"
	"strings"
)

// Document formats a subject and body the way every corpus entry is stored.
func Document(subject, body string) string {
	return fmt.Sprintf("Subject: %s\n\n%s", subject, body)
}

// IsSupported reports whether a Drive file name looks like a quote source.
func IsSupported(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, ".eml") || strings.Contains(lower, ".pdf")
}

// Extract dispatches on the file name: PDFs are read for text, everything
// else is parsed as an RFC 822 message.
func Extract(name string, raw []byte) (string, error) {
	if strings.EqualFold(path.Ext(name), ".pdf") {
		return FromPDF(name, raw)
	}
	return FromEML(raw)
}
