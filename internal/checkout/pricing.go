package checkout

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

var (
	// Orders at or above this subtotal ship for free.
	freeShippingThreshold = models.MoneyFromInt(999)
	flatShippingFee       = models.MoneyFromInt(50)
	taxRate               = decimal.New(18, -2)
)

// PricedLine is one cart line with the unit price fixed at quote time.
type PricedLine struct {
	ProductID primitive.ObjectID `json:"productId"`
	Name      string             `json:"name"`
	UnitPrice models.Money       `json:"unitPrice"`
	Quantity  int                `json:"quantity"`
	Total     models.Money       `json:"total"`
}

// Quote is the full price breakdown for a set of lines.
type Quote struct {
	Lines        []PricedLine `json:"items"`
	Subtotal     models.Money `json:"subtotal"`
	ShippingCost models.Money `json:"shippingCost"`
	Tax          models.Money `json:"tax"`
	Total        models.Money `json:"total"`
}

// Price computes subtotal, shipping, tax and total for the given cart
// lines. Pure function; all arithmetic is fixed-point with two decimal
// places, so repeated quoting of the same cart always yields the same
// amounts.
func Price(lines []CartLine) Quote {
	priced := make([]PricedLine, 0, len(lines))
	subtotal := models.MoneyFromInt(0)

	for _, line := range lines {
		unit := line.Product.UnitPrice()
		total := unit.MulQty(line.Quantity)
		priced = append(priced, PricedLine{
			ProductID: line.ProductID,
			Name:      line.Product.Name,
			UnitPrice: unit,
			Quantity:  line.Quantity,
			Total:     total,
		})
		subtotal = subtotal.Add(total)
	}

	shipping := flatShippingFee
	if !subtotal.LessThan(freeShippingThreshold) {
		shipping = models.MoneyFromInt(0)
	}

	tax := subtotal.MulRate(taxRate)

	return Quote{
		Lines:        priced,
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal.Add(shipping).Add(tax),
	}
}

// OrderItems converts the quote lines into immutable order item snapshots.
func (q Quote) OrderItems() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(q.Lines))
	for _, line := range q.Lines {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.UnitPrice,
			Quantity:  line.Quantity,
			Total:     line.Total,
		})
	}
	return items
}
