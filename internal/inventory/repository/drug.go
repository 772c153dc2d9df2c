package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
)

// Drug schedules under the Drugs and Cosmetics Rules. Schedule H and H1
// drugs are prescription-only; X is narcotic. The conversion resolver uses
// the schedule to decide fallback strictness.
const (
	ScheduleOTC = "OTC"
	ScheduleG   = "G"
	ScheduleH   = "H"
	ScheduleH1  = "H1"
	ScheduleX   = "X"
)

// Drug represents a drug master record
type Drug struct {
	ID          string    `db:"id" json:"id"`
	StoreID     string    `db:"store_id" json:"store_id"`
	Name        string    `db:"name" json:"name"`
	GenericName *string   `db:"generic_name" json:"generic_name,omitempty"`
	Schedule    string    `db:"schedule" json:"schedule"`
	BaseUnit    string    `db:"base_unit" json:"base_unit"`
	DisplayUnit string    `db:"display_unit" json:"display_unit"`
	HSNCode     *string   `db:"hsn_code" json:"hsn_code,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// IsControlled reports whether the drug requires strict handling.
// Schedule H, H1 and X drugs never get the lenient 1:1 conversion fallback.
func (d *Drug) IsControlled() bool {
	return d.Schedule == ScheduleH || d.Schedule == ScheduleH1 || d.Schedule == ScheduleX
}

// DrugRepository handles drug master persistence
type DrugRepository struct {
	db *database.DB
}

// NewDrugRepository creates a new drug repository
func NewDrugRepository(db *database.DB) *DrugRepository {
	return &DrugRepository{db: db}
}

// GetByID gets a drug by ID
func (r *DrugRepository) GetByID(ctx context.Context, id string) (*Drug, error) {
	var drug Drug
	query := `SELECT * FROM drugs WHERE id = $1`
	if err := r.db.GetContext(ctx, &drug, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("drug")
		}
		return nil, err
	}
	return &drug, nil
}
