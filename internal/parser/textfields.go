package parser

import (
	"log"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

// Field labels as they appear in the plaintext rendering of an order
// document. The emailed confirmations wrap labels in asterisks (an emphasis
// convention from the mail renderer); older documents use plain "Label:".
const (
	labelOrderID         = "Order Id"
	labelCustomerID      = "DBX Customer Id"
	labelClient          = "Client"
	labelAddress         = "Address"
	labelCity            = "City"
	labelState           = "State"
	labelZip             = "Zip"
	labelEmail           = "Email"
	labelPhone           = "Phone"
	labelOrderDate       = "Order Date"
	labelOrderPO         = "Order Po"
	labelOrderDueDate    = "Order Due Date"
	labelOrderType       = "Order Type"
	labelOrderDelivered  = "Order Delivered"
	labelQuoteExpiration = "Quote Expiration Date"
	labelGrandTotal      = "Order Grand Total"
	labelProgress        = "Progress Payments"
	labelBalanceDue      = "Balance Due"
	labelSalesRep        = "Sales Rep"
)

// fieldPatterns builds the per-label regexes in precedence order. First
// match wins across the whole document:
//
//	*Label:*value    asterisk before the label and after the colon
//	*Label: value    space before the value
//	*Label*:value    asterisks wrapping only the label
//	*Label:  value   required whitespace after the colon
//	Label:value      plain, no asterisks
func fieldPatterns(label string) []*regexp.Regexp {
	l := regexp.QuoteMeta(label)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?im)\*\s*` + l + `\s*:\*[ \t]*(.*)$`),
		regexp.MustCompile(`(?im)\*\s*` + l + `\s*:[ \t](.*)$`),
		regexp.MustCompile(`(?im)\*\s*` + l + `\s*\*\s*:[ \t]*(.*)$`),
		regexp.MustCompile(`(?im)\*\s*` + l + `:[ \t]+(.*)$`),
		regexp.MustCompile(`(?im)^[ \t]*` + l + `\s*:[ \t]*(.*)$`),
	}
}

var fieldPatternCache = map[string][]*regexp.Regexp{}

func init() {
	for _, label := range []string{
		labelOrderID, labelCustomerID, labelClient, labelAddress, labelCity,
		labelState, labelZip, labelEmail, labelPhone, labelOrderDate,
		labelOrderPO, labelOrderDueDate, labelOrderType, labelOrderDelivered,
		labelQuoteExpiration, labelGrandTotal, labelProgress, labelBalanceDue,
		labelSalesRep,
	} {
		fieldPatternCache[label] = fieldPatterns(label)
	}
}

// extractField returns the cleaned value for a label, or nil when the label
// is absent or its value is empty after cleaning. An empty value after
// cleaning means the field was authored but left blank ("*Order Po:*"),
// which callers treat the same as missing.
func extractField(text, label string) *string {
	for _, re := range fieldPatternCache[label] {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(strings.ReplaceAll(m[1], "*", ""))
		if value == "" {
			return nil
		}
		return &value
	}
	return nil
}

// extractAmountField parses a currency field. Values that fail to parse or
// are not positive are treated as absent; allowZero relaxes that for fields
// where zero is meaningful (Balance Due on a paid-off order).
func extractAmountField(text, label string, allowZero bool) *decimal.Decimal {
	raw := extractField(text, label)
	if raw == nil {
		return nil
	}
	cleaned := strings.ReplaceAll(strings.ReplaceAll(*raw, "$", ""), ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	if d.IsNegative() || (d.IsZero() && !allowZero) {
		return nil
	}
	return &d
}

// extractBoolField maps the delivered flag; unrecognized values stay unset.
func extractBoolField(text, label string) *bool {
	raw := extractField(text, label)
	if raw == nil {
		return nil
	}
	switch strings.ToLower(*raw) {
	case "0", "false", "no":
		v := false
		return &v
	case "1", "true", "yes":
		v := true
		return &v
	}
	return nil
}

func stringOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ExtractLocation pulls the labeled key/value fields out of the plaintext
// view of an order document. It never fails: when nothing recognizable is
// found it logs a diagnostic and returns a Location with empty fields, and
// callers must check field presence before trusting the record.
func ExtractLocation(text string) *models.Location {
	text = normalizeNewlines(text)

	loc := &models.Location{
		OrderNo:    stringOrEmpty(extractField(text, labelOrderID)),
		CustomerID: stringOrEmpty(extractField(text, labelCustomerID)),
		ClientName: stringOrEmpty(extractField(text, labelClient)),
		Address:    stringOrEmpty(extractField(text, labelAddress)),
		City:       stringOrEmpty(extractField(text, labelCity)),
		State:      stringOrEmpty(extractField(text, labelState)),
		Zip:        stringOrEmpty(extractField(text, labelZip)),

		Email:            extractField(text, labelEmail),
		Phone:            extractField(text, labelPhone),
		OrderDate:        extractField(text, labelOrderDate),
		OrderPO:          extractField(text, labelOrderPO),
		OrderDueDate:     extractField(text, labelOrderDueDate),
		OrderType:        extractField(text, labelOrderType),
		Delivered:        extractBoolField(text, labelOrderDelivered),
		QuoteExpiration:  extractField(text, labelQuoteExpiration),
		GrandTotal:       extractAmountField(text, labelGrandTotal, false),
		ProgressPayments: extractField(text, labelProgress),
		BalanceDue:       extractAmountField(text, labelBalanceDue, true),
		SalesRep:         extractField(text, labelSalesRep),
	}

	if loc.ClientName == "" && loc.CustomerID == "" && loc.Address == "" {
		sample := text
		if len(sample) > 200 {
			sample = sample[:200]
		}
		log.Printf("[Location] No recognizable fields found, document sample: %q", sample)
	}

	return loc
}
