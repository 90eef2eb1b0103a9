// Package pricing computes the frozen money snapshot of an order line.
package pricing

import (
	"fmt"

	"clothing-marketplace/internal/model"

	"github.com/shopspring/decimal"
)

// Quantity bounds accepted for a single order.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Input holds the price fields of a variant's parent product and the ordered quantity.
type Input struct {
	UnitPrice      decimal.Decimal
	Quantity       int
	TaxRate        decimal.Decimal
	ShippingCost   decimal.Decimal
	CommissionRate decimal.Decimal
}

// Breakdown is the derived pricing of an order. Amounts are rounded to two decimal places.
type Breakdown struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	ShippingCost       decimal.Decimal `json:"shippingCost"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	CommissionAmount   decimal.Decimal `json:"commissionAmount"`
	SellerPayoutAmount decimal.Decimal `json:"sellerPayoutAmount"`
}

var one = decimal.NewFromInt(1)

// Validate rejects inputs that would otherwise produce a meaningless breakdown.
// It must be called before Compute.
func Validate(in Input) error {
	if in.Quantity < MinQuantity || in.Quantity > MaxQuantity {
		return model.ErrInvalidQuantity
	}
	if !in.UnitPrice.IsPositive() {
		return model.ErrInvalidPricing.WithMessage("unit price must be greater than zero")
	}
	if err := checkRate("tax rate", in.TaxRate); err != nil {
		return err
	}
	if err := checkRate("commission rate", in.CommissionRate); err != nil {
		return err
	}
	if in.ShippingCost.IsNegative() {
		return model.ErrInvalidPricing.WithMessage("shipping cost must not be negative")
	}
	return nil
}

func checkRate(name string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return model.ErrInvalidPricing.WithMessage(fmt.Sprintf("%s must be between 0 and 1", name))
	}
	return nil
}

// Compute derives the order amounts from validated input. It performs no I/O.
// Total and payout are built from the rounded components so the stored amounts always add up.
func Compute(in Input) Breakdown {
	subtotal := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2)
	tax := subtotal.Mul(in.TaxRate).Round(2)
	shipping := in.ShippingCost.Round(2)
	commission := subtotal.Mul(in.CommissionRate).Round(2)

	return Breakdown{
		Subtotal:           subtotal,
		TaxAmount:          tax,
		ShippingCost:       shipping,
		TotalAmount:        subtotal.Add(tax).Add(shipping),
		CommissionAmount:   commission,
		SellerPayoutAmount: subtotal.Sub(commission),
	}
}

// FromVariant builds pricing input from a variant's product snapshot.
func FromVariant(v *model.ProductVariant, quantity int) Input {
	return Input{
		UnitPrice:      v.UnitPrice,
		Quantity:       quantity,
		TaxRate:        v.TaxRate,
		ShippingCost:   v.ShippingCost,
		CommissionRate: v.CommissionRate,
	}
}
