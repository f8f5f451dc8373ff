// Package pricing holds the pure money math for the storefront: effective
// unit prices, cart totals and the delivery fee policy. No I/O happens
// here; amounts are computed with decimals and rounded only at display
// time via StringFixed(2).
package pricing

import (
	"github.com/shopspring/decimal"

	"souqra-system/internal/cart"
	"souqra-system/internal/database/models"
)

var oneHundred = decimal.NewFromInt(100)

// EffectiveUnitPrice applies the product's percentage discount to its
// selling price. A missing, unparsable or non-positive discount means
// the selling price stands as-is.
func EffectiveUnitPrice(product models.Product) decimal.Decimal {
	selling, err := decimal.NewFromString(product.SellingPrice)
	if err != nil {
		return decimal.Zero
	}

	discount, err := decimal.NewFromString(product.DiscountPercent)
	if err != nil || discount.LessThanOrEqual(decimal.Zero) {
		return selling
	}

	return selling.Sub(selling.Mul(discount.Div(oneHundred)))
}

// LineTotal prices one cart line against its product. A line whose
// product or variant cannot be resolved contributes nothing rather than
// erroring.
func LineTotal(line cart.Line, product *models.Product) decimal.Decimal {
	if product == nil {
		return decimal.Zero
	}

	found := false
	for _, v := range product.Variants {
		if v.ID == line.VariantID {
			found = true
			break
		}
	}
	if !found {
		return decimal.Zero
	}

	return EffectiveUnitPrice(*product).Mul(decimal.NewFromInt32(line.Quantity))
}

// Subtotal sums line totals over the cart; unresolved lines are skipped.
func Subtotal(lines []cart.Line, productsByID map[int64]models.Product) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		product, ok := productsByID[line.ProductID]
		if !ok {
			continue
		}
		subtotal = subtotal.Add(LineTotal(line, &product))
	}
	return subtotal
}

// DeliveryCost decides the delivery charge for a given subtotal. Nil or
// inactive settings mean free delivery (the deliberate fail-open
// fallback when the settings row cannot be fetched), orders at or above
// the threshold ship free, anything below pays the flat fee.
func DeliveryCost(subtotal decimal.Decimal, settings *models.DeliverySettings) decimal.Decimal {
	if settings == nil || !settings.IsActive {
		return decimal.Zero
	}

	minOrder, err := decimal.NewFromString(settings.MinOrderAmount)
	if err != nil {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(minOrder) {
		return decimal.Zero
	}

	cost, err := decimal.NewFromString(settings.DeliveryCost)
	if err != nil {
		return decimal.Zero
	}
	return cost
}
