package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
)

// Refill is one authorized dispensing increment under a prescription.
// A one-time prescription owns exactly one refill with number 0.
type Refill struct {
	ID             string    `db:"id" json:"id"`
	PrescriptionID string    `db:"prescription_id" json:"prescription_id"`
	RefillNumber   int       `db:"refill_number" json:"refill_number"`
	PrescribedQty  int64     `db:"prescribed_qty" json:"prescribed_qty"`
	DispensedQty   int64     `db:"dispensed_qty" json:"dispensed_qty"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Remaining returns the undispensed quantity
func (r *Refill) Remaining() int64 {
	remaining := r.PrescribedQty - r.DispensedQty
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RefillRepository handles refill persistence
type RefillRepository struct {
	db *database.DB
}

// NewRefillRepository creates a new refill repository
func NewRefillRepository(db *database.DB) *RefillRepository {
	return &RefillRepository{db: db}
}

// Create creates a refill
func (r *RefillRepository) Create(ctx context.Context, refill *Refill) error {
	if refill.ID == "" {
		refill.ID = uuid.New().String()
	}
	if refill.Status == "" {
		refill.Status = "PENDING"
	}

	query := `
		INSERT INTO refills (id, prescription_id, refill_number, prescribed_qty, dispensed_qty, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		refill.ID, refill.PrescriptionID, refill.RefillNumber,
		refill.PrescribedQty, refill.DispensedQty, refill.Status,
	).Scan(&refill.CreatedAt, &refill.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a refill by ID
func (r *RefillRepository) GetByID(ctx context.Context, id string) (*Refill, error) {
	var refill Refill
	query := `SELECT * FROM refills WHERE id = $1`
	if err := r.db.GetContext(ctx, &refill, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("refill")
		}
		return nil, err
	}
	return &refill, nil
}

// GetForUpdate locks and returns a refill row. Only valid inside a
// transaction; serializes concurrent dispense commits on the same refill.
func (r *RefillRepository) GetForUpdate(ctx context.Context, id string) (*Refill, error) {
	var refill Refill
	query := `SELECT * FROM refills WHERE id = $1 FOR UPDATE`
	if err := r.db.GetContext(ctx, &refill, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("refill")
		}
		return nil, err
	}
	return &refill, nil
}

// ListByPrescription lists a prescription's refills in refill-number order
func (r *RefillRepository) ListByPrescription(ctx context.Context, prescriptionID string) ([]*Refill, error) {
	var refills []*Refill
	query := `SELECT * FROM refills WHERE prescription_id = $1 ORDER BY refill_number`
	if err := r.db.SelectContext(ctx, &refills, query, prescriptionID); err != nil {
		return nil, err
	}
	return refills, nil
}

// AddDispensed increments the dispensed counter, guarded so the total can
// never pass the prescribed quantity. Zero rows affected means the refill
// cannot absorb the increment; the CHECK constraint is the backstop.
func (r *RefillRepository) AddDispensed(ctx context.Context, id string, quantity int64) (*Refill, error) {
	var refill Refill
	query := `
		UPDATE refills
		SET dispensed_qty = dispensed_qty + $2, updated_at = NOW()
		WHERE id = $1 AND dispensed_qty + $2 <= prescribed_qty
		RETURNING *
	`
	err := r.db.QueryRowxContext(ctx, query, id, quantity).StructScan(&refill)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.InsufficientStock("refill cannot absorb dispensed quantity")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return &refill, nil
}

// UpdateStatus writes the derived refill status. Status engine only.
func (r *RefillRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE refills SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("refill")
	}
	return nil
}
