package types

import "strings"

// Address is a delivery destination. Stored on orders as a JSON column; the
// postal code feeds the delivery-zone fee heuristic.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	UnitNumber *string `json:"unit_number,omitempty"`
	PostalCode string  `json:"postal_code"`
	Notes      *string `json:"notes,omitempty"`
}

// Valid reports whether the address carries the minimum fields a delivery
// order needs.
func (a Address) Valid() bool {
	return strings.TrimSpace(a.Line1) != "" && strings.TrimSpace(a.PostalCode) != ""
}
