// Package parser turns the raw /confirmation message text into a structured
// order request. Parsing is total: malformed lines are skipped and malformed
// amounts default to 0, so any input yields a request. All rejection happens
// later, inside the confirmation transaction.
package parser

import (
	"strconv"
	"strings"
)

// OrderRequest is the structured form of a confirmation command.
type OrderRequest struct {
	CustomerName    string
	CustomerAddress string
	CustomerPhone   string
	ProductCodes    []string
	DeliveryCharge  float64
	AdvancePaid     float64
	CashOnDelivery  float64
}

// Parse extracts an OrderRequest from line-oriented "key: value" text.
// Keys are matched case-insensitively after trimming; values keep any
// further ':' characters intact. Unrecognized lines are ignored.
func Parse(text string) OrderRequest {
	var req OrderRequest

	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "name":
			req.CustomerName = value
		case "address":
			req.CustomerAddress = value
		case "phone":
			req.CustomerPhone = value
		case "product code":
			req.ProductCodes = splitCodes(value)
		case "delivery charge":
			req.DeliveryCharge = parseAmount(value)
		case "paid in advance":
			req.AdvancePaid = parseAmount(value)
		case "cod":
			req.CashOnDelivery = parseAmount(value)
		}
	}

	return req
}

func splitCodes(value string) []string {
	parts := strings.Split(value, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		codes = append(codes, strings.TrimSpace(p))
	}
	return codes
}

// parseAmount mirrors parseFloat-or-zero: negative garbage in, zero out.
func parseAmount(value string) float64 {
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return amount
}
