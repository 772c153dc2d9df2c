package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
)

// Deviation kinds
const (
	DeviationFEFOOverride = "FEFO_OVERRIDE"
	DeviationScanOverride = "SCAN_OVERRIDE"
)

// Deviation is one append-only record of a bypassed recommendation or an
// overridden scan mismatch. Never mutated or deleted.
type Deviation struct {
	ID                 string    `db:"id" json:"id"`
	StoreID            string    `db:"store_id" json:"store_id"`
	DispenseEventID    string    `db:"dispense_event_id" json:"dispense_event_id"`
	DrugID             string    `db:"drug_id" json:"drug_id"`
	Kind               string    `db:"kind" json:"kind"`
	RecommendedBatchID *string   `db:"recommended_batch_id" json:"recommended_batch_id,omitempty"`
	ActualBatchID      *string   `db:"actual_batch_id" json:"actual_batch_id,omitempty"`
	DeviationDays      int       `db:"deviation_days" json:"deviation_days"`
	ActorID            string    `db:"actor_id" json:"actor_id"`
	Reason             *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// AdherenceStats summarizes FEFO adherence over a window
type AdherenceStats struct {
	TotalDispenses   int     `db:"total_dispenses" json:"total_dispenses"`
	TotalDeviations  int     `db:"total_deviations" json:"total_deviations"`
	FEFOOverrides    int     `db:"fefo_overrides" json:"fefo_overrides"`
	ScanOverrides    int     `db:"scan_overrides" json:"scan_overrides"`
	AdherencePercent float64 `json:"adherence_percent"`
	AvgDeviationDays float64 `db:"avg_deviation_days" json:"avg_deviation_days"`
}

// DeviationRepository handles deviation persistence
type DeviationRepository struct {
	db *database.DB
}

// NewDeviationRepository creates a new deviation repository
func NewDeviationRepository(db *database.DB) *DeviationRepository {
	return &DeviationRepository{db: db}
}

// Create appends a deviation record
func (r *DeviationRepository) Create(ctx context.Context, d *Deviation) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	query := `
		INSERT INTO fefo_deviations (
			id, store_id, dispense_event_id, drug_id, kind,
			recommended_batch_id, actual_batch_id, deviation_days, actor_id, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		d.ID, d.StoreID, d.DispenseEventID, d.DrugID, d.Kind,
		d.RecommendedBatchID, d.ActualBatchID, d.DeviationDays, d.ActorID, d.Reason,
	).Scan(&d.CreatedAt)
}

// ListByDispenseEvent lists deviations recorded against one event
func (r *DeviationRepository) ListByDispenseEvent(ctx context.Context, eventID string) ([]*Deviation, error) {
	var deviations []*Deviation
	query := `SELECT * FROM fefo_deviations WHERE dispense_event_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &deviations, query, eventID); err != nil {
		return nil, err
	}
	return deviations, nil
}

// CountRecentByActor counts an actor's deviations inside a window. Feeds
// the behavioral alert when someone overrides FEFO habitually.
func (r *DeviationRepository) CountRecentByActor(ctx context.Context, storeID, actorID string, since time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM fefo_deviations
		WHERE store_id = $1 AND actor_id = $2 AND created_at >= $3
	`
	if err := r.db.GetContext(ctx, &count, query, storeID, actorID, since); err != nil {
		return 0, err
	}
	return count, nil
}

// Stats computes adherence statistics for a store over a window
func (r *DeviationRepository) Stats(ctx context.Context, storeID string, since time.Time) (*AdherenceStats, error) {
	var stats AdherenceStats

	query := `
		SELECT
			COUNT(*) AS total_deviations,
			COUNT(*) FILTER (WHERE kind = 'FEFO_OVERRIDE') AS fefo_overrides,
			COUNT(*) FILTER (WHERE kind = 'SCAN_OVERRIDE') AS scan_overrides,
			COALESCE(AVG(deviation_days), 0) AS avg_deviation_days
		FROM fefo_deviations
		WHERE store_id = $1 AND created_at >= $2
	`
	if err := r.db.GetContext(ctx, &stats, query, storeID, since); err != nil {
		return nil, err
	}

	countQuery := `
		SELECT COUNT(*) FROM dispense_events
		WHERE store_id = $1 AND status = 'COMPLETED' AND completed_at >= $2
	`
	if err := r.db.GetContext(ctx, &stats.TotalDispenses, countQuery, storeID, since); err != nil {
		return nil, err
	}

	if stats.TotalDispenses > 0 {
		adherent := stats.TotalDispenses - stats.TotalDeviations
		if adherent < 0 {
			adherent = 0
		}
		stats.AdherencePercent = float64(adherent) / float64(stats.TotalDispenses) * 100
	} else {
		stats.AdherencePercent = 100
	}

	return &stats, nil
}
