package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
)

// BaseQuantity is the result of resolving a display-unit quantity into the
// drug's base counting unit.
type BaseQuantity struct {
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Factor   decimal.Decimal `json:"factor"`
	// Fallback is true when no conversion rule existed and the 1:1 identity
	// was applied. Operators use this signal to add the missing rule.
	Fallback bool `json:"fallback"`
}

// BaseUnits returns the quantity as whole base units. Stock is counted in
// integers; a fractional result means the request cannot be dispensed as-is.
func (b BaseQuantity) BaseUnits() (int64, error) {
	if !b.Quantity.IsInteger() {
		return 0, errors.Validation(map[string]string{
			"quantity": "converted quantity " + b.Quantity.String() + " is not a whole number of base units",
		})
	}
	return b.Quantity.IntPart(), nil
}

// ConversionService resolves quantities and prices between display and base
// units. Lookups never block a dispense for uncontrolled drugs; a missing
// rule degrades to a logged 1:1 fallback. Controlled (schedule H/H1/X)
// drugs hard-fail instead when strict mode is on.
type ConversionService struct {
	drugRepo         *repository.DrugRepository
	conversionRepo   *repository.ConversionRepository
	strictControlled bool
	logger           *logger.Logger
}

// NewConversionService creates a new conversion service
func NewConversionService(
	drugRepo *repository.DrugRepository,
	conversionRepo *repository.ConversionRepository,
	strictControlled bool,
	log *logger.Logger,
) *ConversionService {
	return &ConversionService{
		drugRepo:         drugRepo,
		conversionRepo:   conversionRepo,
		strictControlled: strictControlled,
		logger:           log,
	}
}

func unitsEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ResolveBaseQuantity converts a display-unit quantity to the drug's base
// unit. Identity when the unit already is the base unit; multiplied by the
// rule factor otherwise; 1:1 fallback with a warning when no rule exists.
func (s *ConversionService) ResolveBaseQuantity(ctx context.Context, drugID string, quantity decimal.Decimal, unit string) (BaseQuantity, error) {
	if quantity.IsNegative() || quantity.IsZero() {
		return BaseQuantity{}, errors.Validation(map[string]string{
			"quantity": "must be positive",
		})
	}

	drug, err := s.drugRepo.GetByID(ctx, drugID)
	if err != nil {
		return BaseQuantity{}, err
	}

	if unitsEqual(unit, drug.BaseUnit) {
		return BaseQuantity{
			Quantity: quantity,
			Unit:     drug.BaseUnit,
			Factor:   decimal.NewFromInt(1),
		}, nil
	}

	rule, err := s.conversionRepo.Get(ctx, drugID, unit, drug.BaseUnit)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return BaseQuantity{}, err
		}

		if s.strictControlled && drug.IsControlled() {
			return BaseQuantity{}, errors.Validation(map[string]string{
				"unit": "no conversion rule from " + unit + " to " + drug.BaseUnit + " for schedule " + drug.Schedule + " drug",
			})
		}

		s.logger.Warn().
			Str("drug_id", drugID).
			Str("from_unit", unit).
			Str("to_unit", drug.BaseUnit).
			Msg("no conversion rule, falling back to 1:1")

		return BaseQuantity{
			Quantity: quantity,
			Unit:     unit,
			Factor:   decimal.NewFromInt(1),
			Fallback: true,
		}, nil
	}

	return BaseQuantity{
		Quantity: quantity.Mul(rule.Factor),
		Unit:     drug.BaseUnit,
		Factor:   rule.Factor,
	}, nil
}

// ConvertFromBaseUnits converts a base-unit quantity back to a display unit,
// rounded to 3 decimals for display.
func (s *ConversionService) ConvertFromBaseUnits(ctx context.Context, drugID string, baseQuantity decimal.Decimal, toUnit string) (decimal.Decimal, error) {
	drug, err := s.drugRepo.GetByID(ctx, drugID)
	if err != nil {
		return decimal.Zero, err
	}

	if unitsEqual(toUnit, drug.BaseUnit) {
		return baseQuantity, nil
	}

	factor, _, err := s.ConversionFactor(ctx, drugID, toUnit, drug.BaseUnit)
	if err != nil {
		return decimal.Zero, err
	}

	return baseQuantity.Div(factor).Round(3), nil
}

// ConversionFactor returns the factor from one unit to another for a drug.
// Checks the direct rule, then the inverse rule's reciprocal, then falls
// back to 1 with a warning. The returned bool reports the fallback.
func (s *ConversionService) ConversionFactor(ctx context.Context, drugID, fromUnit, toUnit string) (decimal.Decimal, bool, error) {
	if unitsEqual(fromUnit, toUnit) {
		return decimal.NewFromInt(1), false, nil
	}

	rule, err := s.conversionRepo.Get(ctx, drugID, fromUnit, toUnit)
	if err == nil {
		return rule.Factor, false, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return decimal.Zero, false, err
	}

	inverse, err := s.conversionRepo.Get(ctx, drugID, toUnit, fromUnit)
	if err == nil {
		if inverse.Factor.IsZero() {
			return decimal.Zero, false, errors.Internal("conversion rule has zero factor")
		}
		return decimal.NewFromInt(1).Div(inverse.Factor), false, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return decimal.Zero, false, err
	}

	s.logger.Warn().
		Str("drug_id", drugID).
		Str("from_unit", fromUnit).
		Str("to_unit", toUnit).
		Msg("no conversion rule in either direction, falling back to 1:1")

	return decimal.NewFromInt(1), true, nil
}

// ResolvePartialUnitPrice prices a quantity in the requested unit against a
// batch's MRP. When the unit differs from the priced unit, the MRP is
// divided by the conversion factor to derive a per-unit price. Monetary
// results are rounded half-up to 2 decimals exactly once, at the end.
func (s *ConversionService) ResolvePartialUnitPrice(ctx context.Context, batch *repository.InventoryBatch, quantity decimal.Decimal, unit, drugID string) (unitPrice, lineTotal decimal.Decimal, err error) {
	if quantity.IsNegative() {
		return decimal.Zero, decimal.Zero, errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})
	}

	if unitsEqual(unit, batch.ReceivedUnit) {
		unitPrice = batch.MRP
		lineTotal = batch.MRP.Mul(quantity)
		return unitPrice.Round(2), lineTotal.Round(2), nil
	}

	factor, fallback, err := s.ConversionFactor(ctx, drugID, batch.ReceivedUnit, unit)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if factor.IsZero() {
		return decimal.Zero, decimal.Zero, errors.Internal("conversion factor is zero")
	}
	if fallback {
		s.logger.Warn().
			Str("drug_id", drugID).
			Str("batch_id", batch.ID).
			Str("unit", unit).
			Msg("pricing with 1:1 fallback factor")
	}

	perUnit := batch.MRP.Div(factor)
	total := perUnit.Mul(quantity)
	return perUnit.Round(2), total.Round(2), nil
}
