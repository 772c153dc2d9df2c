package database

import (
	"strings"

	"github.com/lib/pq"

	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.StateConflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to typed errors.
// The quantity constraints are the database-level backstop for the no-oversell
// and monotonic-dispense invariants.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_in_stock_non_negative"):
		return errors.InsufficientStock("batch stock cannot go negative")

	case strings.Contains(constraint, "dispensed_within_prescribed"):
		return errors.InsufficientStock("dispensed quantity cannot exceed prescribed quantity")

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "invalid status value",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "batch_number"):
		return "a batch with this batch number already exists for this drug"
	case strings.Contains(constraint, "refill_number"):
		return "a refill with this number already exists for this prescription"
	case strings.Contains(constraint, "conversion_rule"):
		return "a conversion rule for this drug and unit pair already exists"
	default:
		return "a record with these values already exists"
	}
}
