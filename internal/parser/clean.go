package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Text-cleaning helpers shared by the field extractor and the row classifier.
// Everything here operates on plain strings so the heuristics stay
// independently testable without any HTML library in the loop.

var (
	inlineTagRe   = regexp.MustCompile(`(?i)</?(?:strong|em|b|i)\b[^>]*>`)
	brTagRe       = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTagRe      = regexp.MustCompile(`<[^>]*>`)
	spaceRunRe    = regexp.MustCompile(`\s+`)
	moneyJunkRe   = regexp.MustCompile(`[$,\s]`)
	leadingNumRe  = regexp.MustCompile(`^\s*(\d[\d,]*\.?\d*)`)
	numberTokenRe = regexp.MustCompile(`\d[\d,]*\.?\d*`)
)

// normalizeNewlines converts CRLF/CR line endings to LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// cleanDescription flattens a cell's inner HTML into a single-line label:
// emphasis tags are unwrapped (text kept), <br> becomes a space, remaining
// tags are stripped and entities decoded.
func cleanDescription(innerHTML string) string {
	s := inlineTagRe.ReplaceAllString(innerHTML, "")
	s = brTagRe.ReplaceAllString(s, " ")
	s = anyTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// parseMoney parses a currency string ("$2,500.00") into a decimal.
// Unparsable input yields zero, matching the drop-don't-error policy.
func parseMoney(s string) decimal.Decimal {
	cleaned := moneyJunkRe.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseLeadingQuantity reads the numeric prefix of a quantity cell
// ("3", "0 SF", "1,200 LF"). No prefix means quantity 1.
func parseLeadingQuantity(s string) decimal.Decimal {
	m := leadingNumRe.FindStringSubmatch(s)
	if m == nil {
		return decimal.NewFromInt(1)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return d
}

// largestPlausibleAmount scans free text for numeric tokens and returns the
// largest one in the (1, 1,000,000] band, or zero when none qualifies. Used
// as the fallback when an addendum's amount cell is unusable.
func largestPlausibleAmount(texts []string) decimal.Decimal {
	lower := decimal.NewFromInt(1)
	upper := decimal.NewFromInt(1000000)
	best := decimal.Zero
	for _, t := range texts {
		for _, tok := range numberTokenRe.FindAllString(t, -1) {
			d, err := decimal.NewFromString(strings.ReplaceAll(tok, ",", ""))
			if err != nil {
				continue
			}
			if d.GreaterThanOrEqual(lower) && d.LessThanOrEqual(upper) && d.GreaterThan(best) {
				best = d
			}
		}
	}
	return best
}
