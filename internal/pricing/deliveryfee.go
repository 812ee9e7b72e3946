package pricing

import (
	"strconv"
	"strings"
)

// DefaultBaseETAMinutes is the preparation-free ETA floor for a same-zone drop.
const DefaultBaseETAMinutes = 30

// FeeQuote is a surcharged delivery fee plus a rough ETA. The numbers are a
// heuristic over postal zones, not a routing truth source.
type FeeQuote struct {
	FeeCents   int
	ETAMinutes int
}

// DeliveryFee quotes the delivery fee for a customer postal code given the
// merchant's flat base fee and home postal code. Zones are the first two
// digits of the postal code; the surcharge grows in fixed tiers as the zone
// distance crosses 5, 10 and 20, and each zone of distance adds a minute to
// the base ETA. Unparsable postal codes on either side quote the base fee at
// the base ETA.
func DeliveryFee(baseFeeCents int, merchantPostal, customerPostal string, baseETAMinutes int) FeeQuote {
	if baseETAMinutes <= 0 {
		baseETAMinutes = DefaultBaseETAMinutes
	}

	merchantZone, okM := postalZone(merchantPostal)
	customerZone, okC := postalZone(customerPostal)
	if !okM || !okC {
		return FeeQuote{FeeCents: baseFeeCents, ETAMinutes: baseETAMinutes}
	}

	d := merchantZone - customerZone
	if d < 0 {
		d = -d
	}

	var surcharge int
	switch {
	case d < 5:
		surcharge = 0
	case d < 10:
		surcharge = 100
	case d < 20:
		surcharge = 200
	default:
		surcharge = 300
	}

	return FeeQuote{
		FeeCents:   baseFeeCents + surcharge,
		ETAMinutes: baseETAMinutes + d,
	}
}

func postalZone(postal string) (int, bool) {
	trimmed := strings.TrimSpace(postal)
	if len(trimmed) < 2 {
		return 0, false
	}
	zone, err := strconv.Atoi(trimmed[:2])
	if err != nil {
		return 0, false
	}
	return zone, true
}
