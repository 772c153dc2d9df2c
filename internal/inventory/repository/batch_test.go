package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/testutil"
)

const batchID = "7b2a40dc-9c1e-4b1e-8f59-3a4c5d6e7f80"

func TestDecrementStock_ReturnsRemaining(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("UPDATE inventory_batches").
		WithArgs(batchID, int64(20)).
		WillReturnRows(testutil.MockRows("quantity_in_stock").AddRow(int64(80)))

	repo := repository.NewBatchRepository(mockDB.DB)
	remaining, err := repo.DecrementStock(context.Background(), batchID, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(80), remaining)

	mockDB.ExpectationsWereMet(t)
}

func TestDecrementStock_GuardRejectsOversell(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	// The WHERE guard filters the row out; zero rows back means the stock
	// changed underneath us.
	mockDB.ExpectQuery("UPDATE inventory_batches").
		WithArgs(batchID, int64(200)).
		WillReturnRows(testutil.MockRows("quantity_in_stock"))

	repo := repository.NewBatchRepository(mockDB.DB)
	_, err := repo.DecrementStock(context.Background(), batchID, 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	mockDB.ExpectationsWereMet(t)
}

func TestGetByBarcode_FallsBackToBatchNumber(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	rows := testutil.MockRows(
		"id", "store_id", "drug_id", "batch_number", "barcode", "quantity_in_stock",
		"expiry_date", "received_date", "status", "mrp", "received_unit",
		"created_at", "updated_at",
	).AddRow(
		batchID, "store-1", "drug-1", "BN-0001", nil, int64(50),
		now.AddDate(0, 6, 0), now.AddDate(0, -1, 0), "ACTIVE", "47.60", "strip",
		now, now,
	)

	mockDB.ExpectQuery("SELECT * FROM inventory_batches").
		WithArgs("store-1", "BN-0001").
		WillReturnRows(rows)

	repo := repository.NewBatchRepository(mockDB.DB)
	batch, err := repo.GetByBarcode(context.Background(), "store-1", "BN-0001")
	require.NoError(t, err)
	assert.Equal(t, batchID, batch.ID)
	assert.Equal(t, "BN-0001", batch.BatchNumber)

	mockDB.ExpectationsWereMet(t)
}

func TestGetByBarcode_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT * FROM inventory_batches").
		WithArgs("store-1", "MISSING").
		WillReturnRows(testutil.MockRows("id"))

	repo := repository.NewBatchRepository(mockDB.DB)
	_, err := repo.GetByBarcode(context.Background(), "store-1", "MISSING")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
