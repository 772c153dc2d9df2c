// Package domain holds the prescription status derivation rules. Status is
// derived state, never stored fact: the status engine recomputes it from the
// refill set after every committed dispense, and nothing else writes it.
package domain

// PrescriptionStatus values
const (
	StatusDraft     = "DRAFT"
	StatusVerified  = "VERIFIED"
	StatusActive    = "ACTIVE"
	StatusOnHold    = "ON_HOLD"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// RefillStatus values
const (
	RefillPending   = "PENDING"
	RefillActive    = "ACTIVE"
	RefillFullyUsed = "FULLY_USED"
)

// RefillState is the slice of refill data the derivations need.
type RefillState struct {
	RefillNumber  int
	PrescribedQty int64
	DispensedQty  int64
}

// Remaining returns the undispensed quantity. Never negative; the commit
// guard rejects overshoot before it can be stored.
func (r RefillState) Remaining() int64 {
	remaining := r.PrescribedQty - r.DispensedQty
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsTerminal reports whether a prescription status accepts no further
// transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// DeriveRefillStatus computes a refill's status from its counters.
func DeriveRefillStatus(r RefillState) string {
	switch {
	case r.DispensedQty >= r.PrescribedQty:
		return RefillFullyUsed
	case r.DispensedQty > 0:
		return RefillActive
	default:
		return RefillPending
	}
}

// DerivePrescriptionStatus computes the prescription status from the refill
// set. Pure and idempotent: the same inputs always produce the same output,
// and terminal statuses pass through untouched.
//
// Only VERIFIED, ACTIVE and ON_HOLD prescriptions are re-derived:
//   - all refills FULLY_USED    -> COMPLETED
//   - any refill with dispensing -> ACTIVE
//   - otherwise                  -> current status unchanged
func DerivePrescriptionStatus(current string, refills []RefillState) string {
	if current != StatusVerified && current != StatusActive && current != StatusOnHold {
		return current
	}

	if len(refills) == 0 {
		return current
	}

	allFullyUsed := true
	anyDispensed := false
	for _, r := range refills {
		if DeriveRefillStatus(r) != RefillFullyUsed {
			allFullyUsed = false
		}
		if r.DispensedQty > 0 {
			anyDispensed = true
		}
	}

	if allFullyUsed {
		return StatusCompleted
	}
	if anyDispensed {
		return StatusActive
	}
	return current
}

// CanHold reports whether a prescription may be placed on hold.
func CanHold(status string) bool {
	return status == StatusVerified || status == StatusActive
}

// CanCancel reports whether a prescription may be manually cancelled.
// Any non-terminal state qualifies.
func CanCancel(status string) bool {
	return !IsTerminal(status)
}

// CanDispense reports whether dispensing may begin against a prescription.
func CanDispense(status string) bool {
	return status == StatusVerified || status == StatusActive
}
