package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a purchasable size of a product together with the parent product's pricing.
type ProductVariant struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"productId"`
	SellerID       uuid.UUID       `json:"sellerId"`
	ProductName    string          `json:"productName"`
	Size           string          `json:"size"`
	SKU            string          `json:"sku"`
	StockAvailable int             `json:"stockAvailable"`
	StockReserved  int             `json:"stockReserved"`
	IsAvailable    bool            `json:"isAvailable"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Address is a customer's delivery address.
type Address struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customerId"`
	Line1      string    `json:"line1"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Pincode    string    `json:"pincode"`
}
