package validate

import (
	"strings"

	"github.com/ShiraazMoollatjie/goluhn"
)

const InvoicePrefix = "INV-"

func IsLuna(s string) bool {
	err := goluhn.Validate(s)
	return err == nil
}

// IsInvoiceNumber checks the prefix and the Luhn check digit of an invoice number.
func IsInvoiceNumber(s string) bool {
	digits, ok := strings.CutPrefix(s, InvoicePrefix)
	if !ok || digits == "" {
		return false
	}
	return IsLuna(digits)
}
