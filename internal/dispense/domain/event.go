// Package domain holds the dispense event aggregate and its workflow state
// machine. Transitions validate against the current status and reject with
// a state conflict carrying the authoritative state, so callers can
// reconcile without a re-fetch.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
)

// Workflow statuses. CREATED -> SCANNED -> RELEASED -> COMPLETED, with
// CANCELLED reachable from any non-terminal state. Terminal events are
// never reopened; further work on the refill needs a new event.
const (
	StatusCreated   = "CREATED"
	StatusScanned   = "SCANNED"
	StatusReleased  = "RELEASED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// DispenseEvent is one dispensing attempt against one refill.
type DispenseEvent struct {
	ID                  string `db:"id" json:"id"`
	StoreID             string `db:"store_id" json:"store_id"`
	RefillID            string `db:"refill_id" json:"refill_id"`
	PrescriptionID      string `db:"prescription_id" json:"prescription_id"`
	PrescriptionVersion int    `db:"prescription_version" json:"prescription_version"`
	DrugID              string `db:"drug_id" json:"drug_id"`
	Status              string `db:"status" json:"status"`

	QuantityRequested          decimal.NullDecimal `db:"quantity_requested" json:"quantity_requested"`
	RequestedUnit              *string             `db:"requested_unit" json:"requested_unit,omitempty"`
	QuantityDispensedBaseUnits *int64              `db:"quantity_dispensed_base_units" json:"quantity_dispensed_base_units,omitempty"`

	SelectedBatchID *string `db:"selected_batch_id" json:"selected_batch_id,omitempty"`
	ScannedBarcode  *string `db:"scanned_barcode" json:"scanned_barcode,omitempty"`
	ScanOverride    bool    `db:"scan_override" json:"scan_override"`

	CreatedBy    string  `db:"created_by" json:"created_by"`
	ScannedBy    *string `db:"scanned_by" json:"scanned_by,omitempty"`
	ReleasedBy   *string `db:"released_by" json:"released_by,omitempty"`
	CompletedBy  *string `db:"completed_by" json:"completed_by,omitempty"`
	CancelReason *string `db:"cancel_reason" json:"cancel_reason,omitempty"`

	ScannedAt   *time.Time `db:"scanned_at" json:"scanned_at,omitempty"`
	ReleasedAt  *time.Time `db:"released_at" json:"released_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Line is one batch's contribution to a completed event
type Line struct {
	ID              string    `db:"id" json:"id"`
	DispenseEventID string    `db:"dispense_event_id" json:"dispense_event_id"`
	BatchID         string    `db:"batch_id" json:"batch_id"`
	BatchNumber     string    `db:"batch_number" json:"batch_number"`
	Quantity        int64     `db:"quantity" json:"quantity"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// IsTerminal reports whether the event accepts no further transitions
func (e *DispenseEvent) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusCancelled
}

func (e *DispenseEvent) conflict(message string) error {
	return errors.StateConflict(message).WithDetails(map[string]string{
		"dispense_event_id": e.ID,
		"status":            e.Status,
	})
}

// MarkScanned records a verified (or overridden) scan and moves the event
// to SCANNED. A corrected scan of an already SCANNED event replaces the
// previous selection.
func (e *DispenseEvent) MarkScanned(batchID, barcode string, quantity decimal.Decimal, unit string, override bool, actorID string, now time.Time) error {
	if e.Status != StatusCreated && e.Status != StatusScanned {
		return e.conflict("scan is only valid before release")
	}
	if quantity.IsNegative() || quantity.IsZero() {
		return errors.Validation(map[string]string{
			"quantity": "must be positive",
		})
	}

	e.Status = StatusScanned
	e.SelectedBatchID = &batchID
	e.ScannedBarcode = &barcode
	e.QuantityRequested = decimal.NullDecimal{Decimal: quantity, Valid: true}
	e.RequestedUnit = &unit
	e.ScanOverride = override
	e.ScannedBy = &actorID
	e.ScannedAt = &now
	return nil
}

// Release records the pharmacist's visual check and moves the event to
// RELEASED. The confirmation is a required manual gate, not optional;
// it exists to prevent fully automated dispensing.
func (e *DispenseEvent) Release(actorID string, visualCheckConfirmed bool, now time.Time) error {
	if e.Status != StatusScanned {
		return e.conflict("release requires a scanned event")
	}
	if !visualCheckConfirmed {
		return errors.Validation(map[string]string{
			"visual_check_confirmed": "pharmacist visual check must be confirmed",
		})
	}

	e.Status = StatusReleased
	e.ReleasedBy = &actorID
	e.ReleasedAt = &now
	return nil
}

// Complete records the committed base quantity and moves the event to
// COMPLETED. The ledger mutation around it is the service's transaction.
func (e *DispenseEvent) Complete(baseQuantity int64, actorID string, now time.Time) error {
	if e.Status != StatusReleased {
		return e.conflict("complete requires a released event")
	}
	if baseQuantity <= 0 {
		return errors.Validation(map[string]string{
			"quantity": "must be positive",
		})
	}

	e.Status = StatusCompleted
	e.QuantityDispensedBaseUnits = &baseQuantity
	e.CompletedBy = &actorID
	e.CompletedAt = &now
	return nil
}

// Cancel moves any non-terminal event to CANCELLED. A reason is required.
func (e *DispenseEvent) Cancel(reason string, now time.Time) error {
	if e.IsTerminal() {
		return e.conflict("event is already terminal")
	}
	if reason == "" {
		return errors.Validation(map[string]string{
			"reason": "is required",
		})
	}

	e.Status = StatusCancelled
	e.CancelReason = &reason
	e.CancelledAt = &now
	return nil
}
