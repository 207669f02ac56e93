package orders

import (
	"github.com/shopspring/decimal"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
)

// DiscountPolicy derives the discount applied to an order from the contract
// it was placed under.
type DiscountPolicy func(contract *models.Contract) decimal.Decimal

// ContractDiscount is the default policy: the order inherits the duration
// discount negotiated on the pharmacy's contract.
func ContractDiscount(contract *models.Contract) decimal.Decimal {
	if contract == nil {
		return decimal.Zero
	}
	return contract.DiscountRate
}
