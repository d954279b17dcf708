// Package format builds human-readable invoice numbers.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultInvoiceNumberTemplate = "INV-{YYYY}{MM}{DD}-{SEQ6}"

var tokenRe = regexp.MustCompile(`\{(YYYY|YY|MM|DD|SEQ(\d*))\}`)

// FormatInvoiceNumber expands the date and sequence tokens of template.
// {SEQn} zero-pads the sequence to n digits; {SEQ} prints it as is.
func FormatInvoiceNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	out := tokenRe.ReplaceAllStringFunc(template, func(token string) string {
		match := tokenRe.FindStringSubmatch(token)
		switch match[1] {
		case "YYYY":
			return issuedAt.Format("2006")
		case "YY":
			return issuedAt.Format("06")
		case "MM":
			return issuedAt.Format("01")
		case "DD":
			return issuedAt.Format("02")
		}
		width, err := strconv.Atoi(match[2])
		if err != nil || width <= 0 {
			return strconv.FormatInt(seq, 10)
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in invoice number template: %s", out)
	}
	return out, nil
}
