package cart

import (
	"github.com/lumi-glow/storefront/pkg/enums"
	"github.com/lumi-glow/storefront/pkg/money"
	"github.com/shopspring/decimal"
)

// Product is the catalog record a line item is built from.
type Product struct {
	ID            int
	Name          string
	Price         string
	DiscountPrice *string
	Image         string
	StockStatus   *enums.StockStatus
	TotalStock    *int
}

// LineItem is one product-and-quantity entry in the cart. JSON keys match
// the serialized cart array the storefront has always persisted.
type LineItem struct {
	ProductID     int                `json:"id"`
	Name          string             `json:"name"`
	Price         string             `json:"price"`
	DiscountPrice *string            `json:"discountPrice,omitempty"`
	Image         string             `json:"imageSrc"`
	Quantity      int                `json:"quantity"`
	StockStatus   *enums.StockStatus `json:"stockStatus,omitempty"`
	TotalStock    *int               `json:"totalStock,omitempty"`
}

// EffectivePrice is the unit price the line is charged at: discounted
// price when present, else the canonical price.
func (li LineItem) EffectivePrice() decimal.Decimal {
	return money.Effective(li.Price, li.DiscountPrice)
}

// LineTotal is effective price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.EffectivePrice().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// newLineItem builds the stored line from a catalog product.
func newLineItem(product Product, quantity int) LineItem {
	return LineItem{
		ProductID:     product.ID,
		Name:          product.Name,
		Price:         product.Price,
		DiscountPrice: product.DiscountPrice,
		Image:         product.Image,
		Quantity:      quantity,
		StockStatus:   product.StockStatus,
		TotalStock:    product.TotalStock,
	}
}

// Total sums effective price times quantity across the cart. Malformed
// price strings contribute zero rather than failing the computation.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount sums the quantities across the cart.
func ItemCount(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
