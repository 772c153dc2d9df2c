package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/domain"
)

func TestDeriveRefillStatus(t *testing.T) {
	cases := []struct {
		name   string
		refill domain.RefillState
		want   string
	}{
		{"untouched", domain.RefillState{PrescribedQty: 30, DispensedQty: 0}, domain.RefillPending},
		{"partial", domain.RefillState{PrescribedQty: 30, DispensedQty: 10}, domain.RefillActive},
		{"exact", domain.RefillState{PrescribedQty: 30, DispensedQty: 30}, domain.RefillFullyUsed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.DeriveRefillStatus(tc.refill))
		})
	}
}

func TestRefillRemaining(t *testing.T) {
	r := domain.RefillState{PrescribedQty: 30, DispensedQty: 10}
	assert.Equal(t, int64(20), r.Remaining())

	full := domain.RefillState{PrescribedQty: 30, DispensedQty: 30}
	assert.Equal(t, int64(0), full.Remaining())
}

// A one-time prescription with its single refill fully dispensed completes.
func TestDerivePrescriptionStatus_OneTimeFullyDispensed(t *testing.T) {
	refills := []domain.RefillState{
		{RefillNumber: 0, PrescribedQty: 30, DispensedQty: 30},
	}

	got := domain.DerivePrescriptionStatus(domain.StatusVerified, refills)
	assert.Equal(t, domain.StatusCompleted, got)
}

// A partially dispensed prescription with an untouched second refill stays
// ACTIVE, not COMPLETED.
func TestDerivePrescriptionStatus_PartialWithPendingRefill(t *testing.T) {
	refills := []domain.RefillState{
		{RefillNumber: 0, PrescribedQty: 30, DispensedQty: 10},
		{RefillNumber: 1, PrescribedQty: 30, DispensedQty: 0},
	}

	got := domain.DerivePrescriptionStatus(domain.StatusVerified, refills)
	assert.Equal(t, domain.StatusActive, got)
}

func TestDerivePrescriptionStatus_NoDispensingKeepsCurrent(t *testing.T) {
	refills := []domain.RefillState{
		{RefillNumber: 0, PrescribedQty: 30, DispensedQty: 0},
	}

	assert.Equal(t, domain.StatusVerified, domain.DerivePrescriptionStatus(domain.StatusVerified, refills))
	assert.Equal(t, domain.StatusOnHold, domain.DerivePrescriptionStatus(domain.StatusOnHold, refills))
}

func TestDerivePrescriptionStatus_TerminalStatesUntouched(t *testing.T) {
	refills := []domain.RefillState{
		{RefillNumber: 0, PrescribedQty: 30, DispensedQty: 10},
	}

	assert.Equal(t, domain.StatusCompleted, domain.DerivePrescriptionStatus(domain.StatusCompleted, refills))
	assert.Equal(t, domain.StatusCancelled, domain.DerivePrescriptionStatus(domain.StatusCancelled, refills))
	// DRAFT prescriptions have no verified refill set yet
	assert.Equal(t, domain.StatusDraft, domain.DerivePrescriptionStatus(domain.StatusDraft, refills))
}

func TestDerivePrescriptionStatus_Idempotent(t *testing.T) {
	refills := []domain.RefillState{
		{RefillNumber: 0, PrescribedQty: 30, DispensedQty: 30},
		{RefillNumber: 1, PrescribedQty: 30, DispensedQty: 5},
	}

	first := domain.DerivePrescriptionStatus(domain.StatusActive, refills)
	second := domain.DerivePrescriptionStatus(first, refills)
	third := domain.DerivePrescriptionStatus(second, refills)

	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestDerivePrescriptionStatus_AllRefillsUsedCompletes(t *testing.T) {
	refills := []domain.RefillState{
		{RefillNumber: 0, PrescribedQty: 30, DispensedQty: 30},
		{RefillNumber: 1, PrescribedQty: 30, DispensedQty: 30},
	}

	got := domain.DerivePrescriptionStatus(domain.StatusActive, refills)
	assert.Equal(t, domain.StatusCompleted, got)

	// and a completed prescription never reverts to ACTIVE
	again := domain.DerivePrescriptionStatus(got, refills[:1])
	assert.Equal(t, domain.StatusCompleted, again)
}

func TestDerivePrescriptionStatus_EmptyRefillSet(t *testing.T) {
	assert.Equal(t, domain.StatusVerified, domain.DerivePrescriptionStatus(domain.StatusVerified, nil))
}

func TestHoldAndCancelGuards(t *testing.T) {
	assert.True(t, domain.CanHold(domain.StatusVerified))
	assert.True(t, domain.CanHold(domain.StatusActive))
	assert.False(t, domain.CanHold(domain.StatusOnHold))
	assert.False(t, domain.CanHold(domain.StatusCompleted))

	assert.True(t, domain.CanCancel(domain.StatusDraft))
	assert.True(t, domain.CanCancel(domain.StatusOnHold))
	assert.False(t, domain.CanCancel(domain.StatusCompleted))
	assert.False(t, domain.CanCancel(domain.StatusCancelled))

	assert.True(t, domain.CanDispense(domain.StatusVerified))
	assert.True(t, domain.CanDispense(domain.StatusActive))
	assert.False(t, domain.CanDispense(domain.StatusOnHold))
	assert.False(t, domain.CanDispense(domain.StatusDraft))
}
