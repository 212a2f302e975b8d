package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Price       Money              `bson:"price" json:"price"`
	SaleEnabled bool               `bson:"saleEnabled" json:"saleEnabled"`
	SalePrice   Money              `bson:"salePrice" json:"salePrice"`
	IsOnSale    bool               `bson:"-" json:"isOnSale"`
	Category    CategoryList       `bson:"category" json:"category"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Brand       string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Barcode     string             `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	InStock     bool               `bson:"-" json:"inStock"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	IsCampaign  bool               `bson:"isCampaign" json:"isCampaign"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// OnSale reports whether the sale price currently undercuts the list price.
func (p *Product) OnSale() bool {
	return p.SaleEnabled && p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price)
}

// UnitPrice is the price a buyer pays right now: the sale price while a
// valid sale is running, the list price otherwise.
func (p *Product) UnitPrice() Money {
	if p.OnSale() {
		return p.SalePrice
	}
	return p.Price
}

// Derive fills the computed response-only fields.
func (p *Product) Derive() {
	p.IsOnSale = p.OnSale()
	p.InStock = p.Stock > 0
}
