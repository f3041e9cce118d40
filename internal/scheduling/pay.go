// Package scheduling holds the rules shared by shift assignment, the planner and reports:
// pay derivation and interval conflicts.
package scheduling

import (
	"github.com/shopspring/decimal"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
)

// PayInput is the pay-affecting subset of a shift assignment.
type PayInput struct {
	PayType        models.PayType
	HourlyRate     decimal.NullDecimal
	EstimatedHours decimal.NullDecimal
	ActualHours    decimal.NullDecimal
	FlatRate       decimal.NullDecimal
}

// PayInputOf extracts the pay fields of a.
func PayInputOf(a *models.ShiftAssignment) PayInput {
	return PayInput{
		PayType:        a.PayType,
		HourlyRate:     a.HourlyRate,
		EstimatedHours: a.EstimatedHours,
		ActualHours:    a.ActualHours,
		FlatRate:       a.FlatRate,
	}
}

// Hours returns the hours pay is based on: actual hours once recorded, else the estimate.
func (in PayInput) Hours() decimal.NullDecimal {
	if in.ActualHours.Valid {
		return in.ActualHours
	}
	return in.EstimatedHours
}

// CalculatePay derives the pay amount. HOURLY pays rate * hours, FLAT pays the flat rate.
// A missing field required by the pay type is a validation error.
func CalculatePay(in PayInput) (decimal.Decimal, error) {
	switch in.PayType {
	case models.PayTypeHourly:
		if !in.HourlyRate.Valid {
			return decimal.Zero, apperr.Validation("hourly rate is required for HOURLY pay")
		}
		hours := in.Hours()
		if !hours.Valid {
			return decimal.Zero, apperr.Validation("estimated or actual hours are required for HOURLY pay")
		}
		if in.HourlyRate.Decimal.IsNegative() || hours.Decimal.IsNegative() {
			return decimal.Zero, apperr.Validation("hourly rate and hours must not be negative")
		}
		return in.HourlyRate.Decimal.Mul(hours.Decimal), nil
	case models.PayTypeFlat:
		if !in.FlatRate.Valid {
			return decimal.Zero, apperr.Validation("flat rate is required for FLAT pay")
		}
		if in.FlatRate.Decimal.IsNegative() {
			return decimal.Zero, apperr.Validation("flat rate must not be negative")
		}
		return in.FlatRate.Decimal, nil
	default:
		return decimal.Zero, apperr.Validation("pay type must be HOURLY or FLAT, got %q", in.PayType)
	}
}

// ApplyPay recomputes a.CalculatedPay from its pay fields.
func ApplyPay(a *models.ShiftAssignment) error {
	pay, err := CalculatePay(PayInputOf(a))
	if err != nil {
		return err
	}
	a.CalculatedPay = pay
	return nil
}

// PayDefaults fills missing HOURLY fields. planner.Service applies them to dropped operators;
// direct assignment requires the fields to be present.
type PayDefaults struct {
	HourlyRate decimal.Decimal
	Hours      decimal.Decimal
}

// Apply fills a's missing hourly rate and hours and reports whether anything was filled.
// A FLAT assignment is left alone.
func (d PayDefaults) Apply(a *models.ShiftAssignment) bool {
	if a.PayType == "" {
		a.PayType = models.PayTypeHourly
	}
	if a.PayType != models.PayTypeHourly {
		return false
	}
	applied := false
	if !a.HourlyRate.Valid {
		a.HourlyRate = decimal.NewNullDecimal(d.HourlyRate)
		applied = true
	}
	if !a.EstimatedHours.Valid && !a.ActualHours.Valid {
		a.EstimatedHours = decimal.NewNullDecimal(d.Hours)
		applied = true
	}
	return applied
}
