package mail

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
)

// Document is the {html, text} pair the order parser consumes. The two views
// come from the same source: an emailed order confirmation or a partner-page
// fetch.
type Document struct {
	HTML string
	Text string
}

// ParseEML unwraps a raw RFC 822 message into a Document. The envelope
// handling itself is enmime's job; this layer only picks the right parts
// and fills in a text view when the message carries none.
func ParseEML(r io.Reader) (*Document, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read mail envelope: %w", err)
	}

	doc := &Document{
		HTML: env.HTML,
		Text: env.Text,
	}
	if doc.HTML == "" && doc.Text == "" {
		return nil, fmt.Errorf("mail message has no HTML or text body")
	}
	if doc.Text == "" {
		doc.Text = textFromHTML(doc.HTML)
	}
	return doc, nil
}

// FromHTML builds a Document from a bare HTML page, deriving the text view
// used by the field extractor.
func FromHTML(html string) *Document {
	return &Document{
		HTML: html,
		Text: textFromHTML(html),
	}
}

// textFromHTML renders a rough plaintext view of an HTML body, one line per
// block element, enough for the labeled-field extractor to work on.
func textFromHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	var b strings.Builder
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, tr, li, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	b.WriteString(doc.Text())

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
