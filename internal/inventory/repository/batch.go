package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
)

// Batch statuses
const (
	BatchStatusActive      = "ACTIVE"
	BatchStatusQuarantined = "QUARANTINED"
	BatchStatusRecalled    = "RECALLED"
	BatchStatusReserved    = "RESERVED"
	BatchStatusExhausted   = "EXHAUSTED"
)

// Stock movement types
const (
	MovementIn         = "IN"
	MovementOut        = "OUT"
	MovementAdjustment = "ADJUSTMENT"
)

// InventoryBatch represents one received batch of a drug. Stock is counted
// in the drug's base unit.
type InventoryBatch struct {
	ID              string          `db:"id" json:"id"`
	StoreID         string          `db:"store_id" json:"store_id"`
	DrugID          string          `db:"drug_id" json:"drug_id"`
	BatchNumber     string          `db:"batch_number" json:"batch_number"`
	Barcode         *string         `db:"barcode" json:"barcode,omitempty"`
	QuantityInStock int64           `db:"quantity_in_stock" json:"quantity_in_stock"`
	ExpiryDate      time.Time       `db:"expiry_date" json:"expiry_date"`
	ReceivedDate    time.Time       `db:"received_date" json:"received_date"`
	Status          string          `db:"status" json:"status"`
	MRP             decimal.Decimal `db:"mrp" json:"mrp"`
	ReceivedUnit    string          `db:"received_unit" json:"received_unit"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the batch has passed its expiry date.
func (b *InventoryBatch) IsExpired(now time.Time) bool {
	return !b.ExpiryDate.After(now)
}

// StockMovement is one audit row in the stock ledger. Every decrement made
// during a dispense commit appends one.
type StockMovement struct {
	ID            string    `db:"id" json:"id"`
	StoreID       string    `db:"store_id" json:"store_id"`
	BatchID       string    `db:"batch_id" json:"batch_id"`
	DrugID        string    `db:"drug_id" json:"drug_id"`
	MovementType  string    `db:"movement_type" json:"movement_type"`
	Quantity      int64     `db:"quantity" json:"quantity"`
	ReferenceType *string   `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *string   `db:"reference_id" json:"reference_id,omitempty"`
	PerformedBy   string    `db:"performed_by" json:"performed_by"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// BatchRepository handles batch ledger persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *InventoryBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.Status == "" {
		batch.Status = BatchStatusActive
	}

	query := `
		INSERT INTO inventory_batches (
			id, store_id, drug_id, batch_number, barcode, quantity_in_stock,
			expiry_date, received_date, status, mrp, received_unit
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		batch.ID, batch.StoreID, batch.DrugID, batch.BatchNumber, batch.Barcode,
		batch.QuantityInStock, batch.ExpiryDate, batch.ReceivedDate, batch.Status,
		batch.MRP, batch.ReceivedUnit,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*InventoryBatch, error) {
	var batch InventoryBatch
	query := `SELECT * FROM inventory_batches WHERE id = $1`
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// GetByBarcode resolves a scanned barcode to a batch. Falls back to the
// batch number since many suppliers print only that.
func (r *BatchRepository) GetByBarcode(ctx context.Context, storeID, barcode string) (*InventoryBatch, error) {
	var batch InventoryBatch
	query := `
		SELECT * FROM inventory_batches
		WHERE store_id = $1 AND (barcode = $2 OR batch_number = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &batch, query, storeID, barcode); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListActiveForDrug lists ACTIVE, in-stock batches for a drug in FEFO order:
// expiry ascending, then received date, then creation order.
func (r *BatchRepository) ListActiveForDrug(ctx context.Context, storeID, drugID string) ([]*InventoryBatch, error) {
	var batches []*InventoryBatch
	query := `
		SELECT * FROM inventory_batches
		WHERE store_id = $1 AND drug_id = $2 AND status = 'ACTIVE' AND quantity_in_stock > 0
		ORDER BY expiry_date, received_date, created_at
	`
	if err := r.db.SelectContext(ctx, &batches, query, storeID, drugID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListActiveForDrugForUpdate is ListActiveForDrug with row locks. Called
// only inside the dispense commit transaction; serializes concurrent
// commits against the same drug.
func (r *BatchRepository) ListActiveForDrugForUpdate(ctx context.Context, storeID, drugID string) ([]*InventoryBatch, error) {
	var batches []*InventoryBatch
	query := `
		SELECT * FROM inventory_batches
		WHERE store_id = $1 AND drug_id = $2 AND status = 'ACTIVE' AND quantity_in_stock > 0
		ORDER BY expiry_date, received_date, created_at
		FOR UPDATE
	`
	if err := r.db.SelectContext(ctx, &batches, query, storeID, drugID); err != nil {
		return nil, err
	}
	return batches, nil
}

// UpdateStatus changes a batch's status (quarantine, recall, reserve, reactivate)
func (r *BatchRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE inventory_batches SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}
	return nil
}

// DecrementStock deducts quantity from a batch. The WHERE clause guard means
// zero rows affected when stock is insufficient; the CHECK constraint on the
// column is the backstop. A batch hitting zero flips to EXHAUSTED.
func (r *BatchRepository) DecrementStock(ctx context.Context, id string, quantity int64) (remaining int64, err error) {
	query := `
		UPDATE inventory_batches
		SET quantity_in_stock = quantity_in_stock - $2,
		    status = CASE WHEN quantity_in_stock - $2 = 0 THEN 'EXHAUSTED' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND quantity_in_stock >= $2
		RETURNING quantity_in_stock
	`
	err = r.db.QueryRowxContext(ctx, query, id, quantity).Scan(&remaining)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.InsufficientStock("batch stock changed, cannot cover requested quantity")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return 0, appErr
		}
		return 0, err
	}
	return remaining, nil
}

// RecordMovement appends a stock movement audit row
func (r *BatchRepository) RecordMovement(ctx context.Context, m *StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_movements (
			id, store_id, batch_id, drug_id, movement_type, quantity,
			reference_type, reference_id, performed_by, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		m.ID, m.StoreID, m.BatchID, m.DrugID, m.MovementType, m.Quantity,
		m.ReferenceType, m.ReferenceID, m.PerformedBy, m.Notes,
	).Scan(&m.CreatedAt)
}

// TotalActiveStock sums ACTIVE stock for a drug
func (r *BatchRepository) TotalActiveStock(ctx context.Context, storeID, drugID string) (int64, error) {
	var total sql.NullInt64
	query := `
		SELECT SUM(quantity_in_stock) FROM inventory_batches
		WHERE store_id = $1 AND drug_id = $2 AND status = 'ACTIVE' AND quantity_in_stock > 0
	`
	if err := r.db.GetContext(ctx, &total, query, storeID, drugID); err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Int64, nil
}

// GetExpiringBatches gets in-stock batches expiring within days
func (r *BatchRepository) GetExpiringBatches(ctx context.Context, storeID string, withinDays int) ([]*InventoryBatch, error) {
	var batches []*InventoryBatch
	query := `
		SELECT * FROM inventory_batches
		WHERE store_id = $1 AND status = 'ACTIVE' AND quantity_in_stock > 0
		AND expiry_date <= NOW() + INTERVAL '1 day' * $2
		ORDER BY expiry_date
	`
	if err := r.db.SelectContext(ctx, &batches, query, storeID, withinDays); err != nil {
		return nil, err
	}
	return batches, nil
}
