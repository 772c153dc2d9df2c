package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
)

// Prescription represents a prescription header. The version column
// increments on every line-item mutation; in-flight dispense events pin the
// version they were created against.
type Prescription struct {
	ID                  string     `db:"id" json:"id"`
	StoreID             string     `db:"store_id" json:"store_id"`
	PatientID           string     `db:"patient_id" json:"patient_id"`
	PrescriberID        string     `db:"prescriber_id" json:"prescriber_id"`
	Status              string     `db:"status" json:"status"`
	TotalRefillsAllowed int        `db:"total_refills_allowed" json:"total_refills_allowed"`
	Version             int        `db:"version" json:"version"`
	HoldReason          *string    `db:"hold_reason" json:"hold_reason,omitempty"`
	HoldUntil           *time.Time `db:"hold_until" json:"hold_until,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// PrescriptionItem is one prescribed drug line
type PrescriptionItem struct {
	ID                 string    `db:"id" json:"id"`
	PrescriptionID     string    `db:"prescription_id" json:"prescription_id"`
	DrugID             string    `db:"drug_id" json:"drug_id"`
	PrescribedQty      int64     `db:"prescribed_qty" json:"prescribed_qty"`
	Unit               string    `db:"unit" json:"unit"`
	DosageInstructions *string   `db:"dosage_instructions" json:"dosage_instructions,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// PrescriptionRepository handles prescription persistence
type PrescriptionRepository struct {
	db *database.DB
}

// NewPrescriptionRepository creates a new prescription repository
func NewPrescriptionRepository(db *database.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

// CreateWithItems creates a prescription and its line items in one call.
// Callers wrap it in a transaction so the refill rows land atomically too.
func (r *PrescriptionRepository) CreateWithItems(ctx context.Context, p *Prescription, items []*PrescriptionItem) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Version == 0 {
		p.Version = 1
	}

	query := `
		INSERT INTO prescriptions (
			id, store_id, patient_id, prescriber_id, status, total_refills_allowed, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		p.ID, p.StoreID, p.PatientID, p.PrescriberID, p.Status, p.TotalRefillsAllowed, p.Version,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	itemQuery := `
		INSERT INTO prescription_items (
			id, prescription_id, drug_id, prescribed_qty, unit, dosage_instructions
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.PrescriptionID = p.ID
		err := r.db.QueryRowxContext(ctx, itemQuery,
			item.ID, item.PrescriptionID, item.DrugID, item.PrescribedQty, item.Unit, item.DosageInstructions,
		).Scan(&item.CreatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
	}

	return nil
}

// GetByID gets a prescription by ID
func (r *PrescriptionRepository) GetByID(ctx context.Context, id string) (*Prescription, error) {
	var p Prescription
	query := `SELECT * FROM prescriptions WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("prescription")
		}
		return nil, err
	}
	return &p, nil
}

// GetForUpdate locks and returns a prescription row. Only valid inside a
// transaction.
func (r *PrescriptionRepository) GetForUpdate(ctx context.Context, id string) (*Prescription, error) {
	var p Prescription
	query := `SELECT * FROM prescriptions WHERE id = $1 FOR UPDATE`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("prescription")
		}
		return nil, err
	}
	return &p, nil
}

// ListItems lists a prescription's line items
func (r *PrescriptionRepository) ListItems(ctx context.Context, prescriptionID string) ([]*PrescriptionItem, error) {
	var items []*PrescriptionItem
	query := `SELECT * FROM prescription_items WHERE prescription_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &items, query, prescriptionID); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus writes the derived status. The status engine is the only
// caller; nothing else writes this column.
func (r *PrescriptionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE prescriptions SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("prescription")
	}
	return nil
}

// SetHold places a prescription on hold with a reason and expected resolution
func (r *PrescriptionRepository) SetHold(ctx context.Context, id, status string, reason *string, holdUntil *time.Time) error {
	query := `
		UPDATE prescriptions
		SET status = $2, hold_reason = $3, hold_until = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, status, reason, holdUntil)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("prescription")
	}
	return nil
}

// BumpVersion increments the version after a line-item mutation, invalidating
// in-flight dispense events created against the old version.
func (r *PrescriptionRepository) BumpVersion(ctx context.Context, id string) (int, error) {
	var version int
	query := `UPDATE prescriptions SET version = version + 1, updated_at = NOW() WHERE id = $1 RETURNING version`
	if err := r.db.QueryRowxContext(ctx, query, id).Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.NotFound("prescription")
		}
		return 0, err
	}
	return version, nil
}
