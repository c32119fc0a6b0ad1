package service

import (
	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/shopspring/decimal"
)

// ComputeEarnings converts one day of trenching output into money:
//
//	openMeters*openRate + closeMeters*closeRate + sum(additional items)
//
// Rounding to 2 places happens once, on the final sum, never per term, so
// recomputation always reproduces a stored total.
func ComputeEarnings(openMeters, closeMeters, openRate, closeRate decimal.Decimal, items []model.AdditionalItem) (decimal.Decimal, error) {
	if openMeters.IsNegative() || closeMeters.IsNegative() {
		return decimal.Zero, apperr.Validationf("meters must not be negative")
	}
	if openRate.IsNegative() || closeRate.IsNegative() {
		return decimal.Zero, apperr.Validationf("rates must not be negative")
	}

	total := openMeters.Mul(openRate).Add(closeMeters.Mul(closeRate))
	for _, item := range items {
		if item.Amount.IsNegative() {
			return decimal.Zero, apperr.Validationf("additional item %q must not have a negative amount", item.Description)
		}
		total = total.Add(item.Amount)
	}

	return total.Round(2), nil
}
