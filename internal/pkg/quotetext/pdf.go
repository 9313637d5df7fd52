package quotetext

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FromPDF uses the file name without its extension as the subject and the
// PDF's plain text as the body.
func FromPDF(name string, raw []byte) (string, error) {
	text, err := pdfText(raw)
	if err != nil {
		return "", fmt.Errorf("extract pdf %s failed: %w", name, err)
	}
	subject := strings.TrimSuffix(path.Base(name), path.Ext(name))
	return Document(subject, strings.TrimSpace(text)), nil
}

func pdfText(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty pdf")
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
