package pricing

import (
	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/money"
)

// LineInput is one cart line handed to the engine. Unit prices arrive already
// locked by the caller; the engine never consults live product data.
type LineInput struct {
	ProductID      uuid.UUID
	Name           string
	UnitPriceCents int
	Qty            int
	Notes          *string
}

// LineQuote is a priced cart line.
type LineQuote struct {
	LineInput
	TotalCents int
}

// MerchantTerms captures the merchant pricing configuration the engine needs.
type MerchantTerms struct {
	DeliveryFeeCents  int
	MinimumOrderCents int
	PostalCode        string
}

// Quote is the full pricing breakdown for a cart. Discount and tax stay zero
// in this engine and exist so totals always reconcile on the order row.
type Quote struct {
	Lines            []LineQuote
	SubtotalCents    int
	DeliveryFeeCents int
	DiscountCents    int
	TaxCents         int
	TotalCents       int
	ETAMinutes       int
}

// Compute prices a cart against the merchant terms. The minimum order amount
// is compared against the subtotal, before any delivery fee. The fee applies
// only when the method is DELIVERY, surcharged by the postal-zone heuristic.
func Compute(terms MerchantTerms, method enums.DeliveryMethod, customerPostal string, baseETAMinutes int, lines []LineInput) (*Quote, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}

	quote := &Quote{Lines: make([]LineQuote, 0, len(lines))}
	for _, line := range lines {
		if line.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		if line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
		}
		total := line.UnitPriceCents * line.Qty
		quote.Lines = append(quote.Lines, LineQuote{LineInput: line, TotalCents: total})
		quote.SubtotalCents += total
	}

	if quote.SubtotalCents < terms.MinimumOrderCents {
		return nil, pkgerrors.New(
			pkgerrors.CodeValidation,
			"Minimum order amount is "+money.FormatCents(int64(terms.MinimumOrderCents)),
		)
	}

	quote.ETAMinutes = baseETAMinutes
	if quote.ETAMinutes <= 0 {
		quote.ETAMinutes = DefaultBaseETAMinutes
	}
	if method == enums.DeliveryMethodDelivery {
		fee := DeliveryFee(terms.DeliveryFeeCents, terms.PostalCode, customerPostal, baseETAMinutes)
		quote.DeliveryFeeCents = fee.FeeCents
		quote.ETAMinutes = fee.ETAMinutes
	}

	quote.TotalCents = quote.SubtotalCents + quote.DeliveryFeeCents - quote.DiscountCents + quote.TaxCents
	return quote, nil
}
