package quotetext

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blankLinesRX = regexp.MustCompile(`\n{3,}`)

// HTMLToText keeps the readable text of an HTML email body, one block
// element per line.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, table").AfterHtml("\n")

	lines := strings.Split(strings.ReplaceAll(doc.Text(), "\r", ""), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text := blankLinesRX.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text), nil
}
