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

// ConversionRule maps a display unit to a base unit for one drug,
// e.g. 1 strip = 10 tablets.
type ConversionRule struct {
	ID        string          `db:"id" json:"id"`
	DrugID    string          `db:"drug_id" json:"drug_id"`
	FromUnit  string          `db:"from_unit" json:"from_unit"`
	ToUnit    string          `db:"to_unit" json:"to_unit"`
	Factor    decimal.Decimal `db:"factor" json:"factor"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// ConversionRepository handles conversion rule persistence
type ConversionRepository struct {
	db *database.DB
}

// NewConversionRepository creates a new conversion repository
func NewConversionRepository(db *database.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// Get looks up the rule for a drug and unit pair. Absence is a typed
// not-found; the resolver treats it as the fallback branch, not a failure.
func (r *ConversionRepository) Get(ctx context.Context, drugID, fromUnit, toUnit string) (*ConversionRule, error) {
	var rule ConversionRule
	query := `
		SELECT * FROM conversion_rules
		WHERE drug_id = $1 AND LOWER(from_unit) = LOWER($2) AND LOWER(to_unit) = LOWER($3)
	`
	if err := r.db.GetContext(ctx, &rule, query, drugID, fromUnit, toUnit); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("conversion rule")
		}
		return nil, err
	}
	return &rule, nil
}

// Upsert creates or replaces the rule for a drug and unit pair
func (r *ConversionRepository) Upsert(ctx context.Context, rule *ConversionRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	query := `
		INSERT INTO conversion_rules (id, drug_id, from_unit, to_unit, factor)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (drug_id, from_unit, to_unit)
		DO UPDATE SET factor = EXCLUDED.factor, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		rule.ID, rule.DrugID, rule.FromUnit, rule.ToUnit, rule.Factor,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// ListForDrug lists all conversion rules for a drug
func (r *ConversionRepository) ListForDrug(ctx context.Context, drugID string) ([]*ConversionRule, error) {
	var rules []*ConversionRule
	query := `SELECT * FROM conversion_rules WHERE drug_id = $1 ORDER BY from_unit, to_unit`
	if err := r.db.SelectContext(ctx, &rules, query, drugID); err != nil {
		return nil, err
	}
	return rules, nil
}
