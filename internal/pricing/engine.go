package pricing

import (
	"fmt"

	"CatalogSync/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultChannel is the inventory channel used when none is configured.
const DefaultChannel = "Online Store"

// Markup multipliers applied to the supplier's prices.
var (
	USDMarkup    = decimal.RequireFromString("1.4")
	CostMarkup   = decimal.RequireFromString("1.75")
	MarginMarkup = decimal.RequireFromString("1.3")

	priceEnding = decimal.RequireFromString("0.99")
)

// charm returns floor(v × markup) + 0.99.
func charm(v float64, markup decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(v).Mul(markup).Floor().Add(priceEnding)
}

// MarginFloor is the lowest price allowed for a product with a known cost.
// ok is false when the cost is absent.
func MarginFloor(p model.Product) (floor decimal.Decimal, ok bool) {
	if p.Price <= 0 {
		return decimal.Zero, false
	}
	return charm(p.Price, MarginMarkup), true
}

// ComputeFinalPrice picks a base price by priority (CAD map price, then
// marked-up USD map price, then marked-up cost) and lifts it to the margin
// floor when it falls strictly below it.
func ComputeFinalPrice(p model.Product) decimal.Decimal {
	var base decimal.Decimal
	switch {
	case p.CADmap > 0:
		base = decimal.NewFromFloat(p.CADmap)
	case p.USDmap > 0:
		base = charm(p.USDmap, USDMarkup)
	case p.Price > 0:
		base = charm(p.Price, CostMarkup)
	default:
		return decimal.Zero.Round(2)
	}

	if floor, ok := MarginFloor(p); ok && base.LessThan(floor) {
		base = floor
	}
	return base.Round(2)
}

// ComputePricedCatalog prices every product, preserving input order.
// Discontinued products are kept and flagged inactive.
func ComputePricedCatalog(products []model.Product, channel string) ([]model.PricedEntry, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	entries := make([]model.PricedEntry, 0, len(products))
	for i, p := range products {
		if p.PartNumber == "" {
			return nil, fmt.Errorf("%w: product %d has no PartNumber", model.ErrDataContract, i)
		}
		entries = append(entries, model.PricedEntry{
			SKU:        p.PartNumber,
			FinalPrice: ComputeFinalPrice(p).InexactFloat64(),
			CostPrice:  p.Price,
			IsActive:   !p.Discontinued,
			Inventory:  map[string]int{channel: int(p.Available)},
		})
	}
	return entries, nil
}
