package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEMLHTMLOnly(t *testing.T) {
	raw := "From: orders@prodbx.example\r\n" +
		"To: office@calimingo.example\r\n" +
		"Subject: Order 2063\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>Order Id: 2063</p><p>Client: John Smith</p></body></html>\r\n"

	doc, err := ParseEML(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "Order Id: 2063")
	// Text view is derived when the message carries no plain text part.
	assert.Contains(t, doc.Text, "Order Id: 2063")
	assert.Contains(t, doc.Text, "Client: John Smith")
}

func TestParseEMLMultipartAlternative(t *testing.T) {
	raw := "From: orders@prodbx.example\r\n" +
		"Subject: Order 2063\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Order Id: 2063\r\nClient: John Smith\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><b>Order Id:</b> 2063</body></html>\r\n" +
		"--b1--\r\n"

	doc, err := ParseEML(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "<b>Order Id:</b>")
	assert.Contains(t, doc.Text, "Order Id: 2063")
	assert.Contains(t, doc.Text, "Client: John Smith")
}

func TestParseEMLEmptyBody(t *testing.T) {
	raw := "From: orders@prodbx.example\r\n" +
		"Subject: empty\r\n" +
		"\r\n"

	_, err := ParseEML(strings.NewReader(raw))
	assert.Error(t, err)
}

func TestFromHTML(t *testing.T) {
	doc := FromHTML("<html><body><div>Order Id: 2063</div><br><div>Client: John Smith</div></body></html>")

	assert.Contains(t, doc.HTML, "<div>Order Id: 2063</div>")
	assert.Equal(t, "Order Id: 2063\nClient: John Smith", doc.Text)
}

func TestFromHTMLTableRows(t *testing.T) {
	doc := FromHTML("<table><tr><td>Address: 123 Main St</td></tr><tr><td>City: Los Angeles</td></tr></table>")

	lines := strings.Split(doc.Text, "\n")
	assert.Contains(t, lines, "Address: 123 Main St")
	assert.Contains(t, lines, "City: Los Angeles")
}
