package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/domain"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
)

// DispenseRepository handles dispense event persistence
type DispenseRepository struct {
	db *database.DB
}

// NewDispenseRepository creates a new dispense repository
func NewDispenseRepository(db *database.DB) *DispenseRepository {
	return &DispenseRepository{db: db}
}

// Create persists a new dispense event
func (r *DispenseRepository) Create(ctx context.Context, event *domain.DispenseEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Status == "" {
		event.Status = domain.StatusCreated
	}

	query := `
		INSERT INTO dispense_events (
			id, store_id, refill_id, prescription_id, prescription_version,
			drug_id, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		event.ID, event.StoreID, event.RefillID, event.PrescriptionID,
		event.PrescriptionVersion, event.DrugID, event.Status, event.CreatedBy,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a dispense event by ID
func (r *DispenseRepository) GetByID(ctx context.Context, id string) (*domain.DispenseEvent, error) {
	var event domain.DispenseEvent
	query := `SELECT * FROM dispense_events WHERE id = $1`
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("dispense event")
		}
		return nil, err
	}
	return &event, nil
}

// GetForUpdate locks and returns a dispense event row. Only valid inside a
// transaction.
func (r *DispenseRepository) GetForUpdate(ctx context.Context, id string) (*domain.DispenseEvent, error) {
	var event domain.DispenseEvent
	query := `SELECT * FROM dispense_events WHERE id = $1 FOR UPDATE`
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("dispense event")
		}
		return nil, err
	}
	return &event, nil
}

// Update writes the event's mutable workflow fields back
func (r *DispenseRepository) Update(ctx context.Context, event *domain.DispenseEvent) error {
	query := `
		UPDATE dispense_events SET
			status = $2,
			quantity_requested = $3,
			requested_unit = $4,
			quantity_dispensed_base_units = $5,
			selected_batch_id = $6,
			scanned_barcode = $7,
			scan_override = $8,
			scanned_by = $9,
			released_by = $10,
			completed_by = $11,
			cancel_reason = $12,
			scanned_at = $13,
			released_at = $14,
			completed_at = $15,
			cancelled_at = $16,
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		event.ID, event.Status, event.QuantityRequested, event.RequestedUnit,
		event.QuantityDispensedBaseUnits, event.SelectedBatchID, event.ScannedBarcode,
		event.ScanOverride, event.ScannedBy, event.ReleasedBy, event.CompletedBy,
		event.CancelReason, event.ScannedAt, event.ReleasedAt, event.CompletedAt,
		event.CancelledAt,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("dispense event")
	}
	return nil
}

// CreateLines persists the covering allocations of a completed event
func (r *DispenseRepository) CreateLines(ctx context.Context, lines []*domain.Line) error {
	query := `
		INSERT INTO dispense_lines (id, dispense_event_id, batch_id, batch_number, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	for _, line := range lines {
		if line.ID == "" {
			line.ID = uuid.New().String()
		}
		err := r.db.QueryRowxContext(ctx, query,
			line.ID, line.DispenseEventID, line.BatchID, line.BatchNumber, line.Quantity,
		).Scan(&line.CreatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
	}
	return nil
}

// ListLines lists the covering allocations of an event
func (r *DispenseRepository) ListLines(ctx context.Context, eventID string) ([]*domain.Line, error) {
	var lines []*domain.Line
	query := `SELECT * FROM dispense_lines WHERE dispense_event_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &lines, query, eventID); err != nil {
		return nil, err
	}
	return lines, nil
}

// ListByStore lists a store's events, optionally filtered by status,
// ordered by creation for the workbench
func (r *DispenseRepository) ListByStore(ctx context.Context, storeID string, status string) ([]*domain.DispenseEvent, error) {
	var events []*domain.DispenseEvent

	if status != "" {
		query := `SELECT * FROM dispense_events WHERE store_id = $1 AND status = $2 ORDER BY created_at`
		if err := r.db.SelectContext(ctx, &events, query, storeID, status); err != nil {
			return nil, err
		}
		return events, nil
	}

	query := `SELECT * FROM dispense_events WHERE store_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &events, query, storeID); err != nil {
		return nil, err
	}
	return events, nil
}

// CountOpenForRefill counts non-terminal events against a refill
func (r *DispenseRepository) CountOpenForRefill(ctx context.Context, refillID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM dispense_events
		WHERE refill_id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
	`
	if err := r.db.GetContext(ctx, &count, query, refillID); err != nil {
		return 0, err
	}
	return count, nil
}
