package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/testutil"
)

const (
	drugID  = "11111111-1111-1111-1111-111111111111"
	storeID = "22222222-2222-2222-2222-222222222222"
)

func newConversionService(t *testing.T, strict bool) (*service.ConversionService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	svc := service.NewConversionService(
		repository.NewDrugRepository(mockDB.DB),
		repository.NewConversionRepository(mockDB.DB),
		strict,
		logger.New("test", "test"),
	)
	return svc, mockDB
}

func expectDrug(mockDB *testutil.MockDB, schedule string) {
	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM drugs WHERE id = $1").
		WithArgs(drugID).
		WillReturnRows(testutil.MockRows(
			"id", "store_id", "name", "generic_name", "schedule",
			"base_unit", "display_unit", "hsn_code", "created_at", "updated_at",
		).AddRow(drugID, storeID, "Paracetamol 500mg", nil, schedule, "tablet", "strip", nil, now, now))
}

func expectRule(mockDB *testutil.MockDB, fromUnit, toUnit, factor string) {
	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM conversion_rules").
		WithArgs(drugID, fromUnit, toUnit).
		WillReturnRows(testutil.MockRows(
			"id", "drug_id", "from_unit", "to_unit", "factor", "created_at", "updated_at",
		).AddRow("33333333-3333-3333-3333-333333333333", drugID, fromUnit, toUnit, factor, now, now))
}

func expectNoRule(mockDB *testutil.MockDB, fromUnit, toUnit string) {
	mockDB.ExpectQuery("SELECT * FROM conversion_rules").
		WithArgs(drugID, fromUnit, toUnit).
		WillReturnRows(testutil.MockRows(
			"id", "drug_id", "from_unit", "to_unit", "factor", "created_at", "updated_at",
		))
}

func TestResolveBaseQuantity_WithRule(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	expectDrug(mockDB, "OTC")
	expectRule(mockDB, "strip", "tablet", "10")

	got, err := svc.ResolveBaseQuantity(context.Background(), drugID, decimal.NewFromFloat(2.5), "strip")
	require.NoError(t, err)

	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(25)), "got %s", got.Quantity)
	assert.Equal(t, "tablet", got.Unit)
	assert.False(t, got.Fallback)

	base, err := got.BaseUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(25), base)

	mockDB.ExpectationsWereMet(t)
}

func TestResolveBaseQuantity_IdentityWhenBaseUnit(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	expectDrug(mockDB, "OTC")

	got, err := svc.ResolveBaseQuantity(context.Background(), drugID, decimal.NewFromInt(12), "Tablet")
	require.NoError(t, err)

	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, "tablet", got.Unit)
	assert.False(t, got.Fallback)
	assert.True(t, got.Factor.Equal(decimal.NewFromInt(1)))

	mockDB.ExpectationsWereMet(t)
}

func TestResolveBaseQuantity_FallbackWhenNoRule(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	expectDrug(mockDB, "OTC")
	expectNoRule(mockDB, "bottle", "tablet")

	got, err := svc.ResolveBaseQuantity(context.Background(), drugID, decimal.NewFromInt(2), "bottle")
	require.NoError(t, err)

	assert.True(t, got.Fallback)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "bottle", got.Unit)

	mockDB.ExpectationsWereMet(t)
}

func TestResolveBaseQuantity_ControlledDrugHardFails(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	expectDrug(mockDB, "H")
	expectNoRule(mockDB, "bottle", "tablet")

	_, err := svc.ResolveBaseQuantity(context.Background(), drugID, decimal.NewFromInt(2), "bottle")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	mockDB.ExpectationsWereMet(t)
}

func TestResolveBaseQuantity_ControlledDrugLenientWhenStrictOff(t *testing.T) {
	svc, mockDB := newConversionService(t, false)
	defer mockDB.Close()

	expectDrug(mockDB, "H")
	expectNoRule(mockDB, "bottle", "tablet")

	got, err := svc.ResolveBaseQuantity(context.Background(), drugID, decimal.NewFromInt(2), "bottle")
	require.NoError(t, err)
	assert.True(t, got.Fallback)

	mockDB.ExpectationsWereMet(t)
}

func TestResolveBaseQuantity_RejectsNonPositive(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	_, err := svc.ResolveBaseQuantity(context.Background(), drugID, decimal.Zero, "strip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestBaseQuantity_RejectsFractionalBaseUnits(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	expectDrug(mockDB, "OTC")
	expectRule(mockDB, "strip", "tablet", "10")

	got, err := svc.ResolveBaseQuantity(context.Background(), drugID, decimal.NewFromFloat(0.25), "strip")
	require.NoError(t, err)

	_, err = got.BaseUnits()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	mockDB.ExpectationsWereMet(t)
}

func TestConversionRoundTrip(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	original := decimal.NewFromFloat(3.5)

	expectDrug(mockDB, "OTC")
	expectRule(mockDB, "strip", "tablet", "10")
	resolved, err := svc.ResolveBaseQuantity(context.Background(), drugID, original, "strip")
	require.NoError(t, err)

	expectDrug(mockDB, "OTC")
	expectRule(mockDB, "strip", "tablet", "10")
	back, err := svc.ConvertFromBaseUnits(context.Background(), drugID, resolved.Quantity, "strip")
	require.NoError(t, err)

	diff := back.Sub(original).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.01)), "round trip drifted by %s", diff)

	mockDB.ExpectationsWereMet(t)
}

func TestConversionFactor_InverseRule(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	// no direct tablet->strip rule, but strip->tablet exists
	expectNoRule(mockDB, "tablet", "strip")
	expectRule(mockDB, "strip", "tablet", "10")

	factor, fallback, err := svc.ConversionFactor(context.Background(), drugID, "tablet", "strip")
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.True(t, factor.Equal(decimal.NewFromFloat(0.1)), "got %s", factor)

	mockDB.ExpectationsWereMet(t)
}

func TestResolvePartialUnitPrice_PricedUnit(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	batch := &repository.InventoryBatch{
		ID:           "batch-1",
		MRP:          decimal.NewFromFloat(47.60),
		ReceivedUnit: "strip",
	}

	unitPrice, lineTotal, err := svc.ResolvePartialUnitPrice(context.Background(), batch, decimal.NewFromInt(3), "strip", drugID)
	require.NoError(t, err)

	assert.Equal(t, "47.6", unitPrice.String())
	assert.Equal(t, "142.8", lineTotal.String())
}

func TestResolvePartialUnitPrice_PartialUnit(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	batch := &repository.InventoryBatch{
		ID:           "batch-1",
		MRP:          decimal.NewFromFloat(47.60),
		ReceivedUnit: "strip",
	}

	expectRule(mockDB, "strip", "tablet", "10")

	unitPrice, lineTotal, err := svc.ResolvePartialUnitPrice(context.Background(), batch, decimal.NewFromInt(7), "tablet", drugID)
	require.NoError(t, err)

	// 47.60 / 10 = 4.76 per tablet, 7 tablets = 33.32
	assert.Equal(t, "4.76", unitPrice.String())
	assert.Equal(t, "33.32", lineTotal.String())

	mockDB.ExpectationsWereMet(t)
}

func TestResolvePartialUnitPrice_RoundsOnceAtFinalResult(t *testing.T) {
	svc, mockDB := newConversionService(t, true)
	defer mockDB.Close()

	batch := &repository.InventoryBatch{
		ID:           "batch-1",
		MRP:          decimal.NewFromInt(10),
		ReceivedUnit: "strip",
	}

	expectRule(mockDB, "strip", "tablet", "3")

	unitPrice, lineTotal, err := svc.ResolvePartialUnitPrice(context.Background(), batch, decimal.NewFromInt(3), "tablet", drugID)
	require.NoError(t, err)

	// per-tablet 3.333..., displayed as 3.33; but 3 tablets price from the
	// unrounded intermediate: exactly 10.00, not 3.33 * 3 = 9.99
	assert.Equal(t, "3.33", unitPrice.String())
	assert.Equal(t, "10", lineTotal.String())

	mockDB.ExpectationsWereMet(t)
}
