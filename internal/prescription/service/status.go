package service

import (
	"context"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/domain"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
)

// StatusChange reports the outcome of a recomputation
type StatusChange struct {
	PrescriptionID string `json:"prescription_id"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status"`
	Changed        bool   `json:"changed"`
	Version        int    `json:"version"`
}

// StatusEngine is the sole writer of refill and prescription status. It is
// invoked inside the dispense commit's transaction (the context carries the
// transaction, so every write here participates in it).
//
// Writing status anywhere else reintroduces the stuck-in-VERIFIED bug this
// exists to prevent.
type StatusEngine struct {
	prescriptionRepo *repository.PrescriptionRepository
	refillRepo       *repository.RefillRepository
	logger           *logger.Logger
}

// NewStatusEngine creates a new status engine
func NewStatusEngine(
	prescriptionRepo *repository.PrescriptionRepository,
	refillRepo *repository.RefillRepository,
	log *logger.Logger,
) *StatusEngine {
	return &StatusEngine{
		prescriptionRepo: prescriptionRepo,
		refillRepo:       refillRepo,
		logger:           log,
	}
}

// Recompute re-derives every refill status and the prescription status from
// the refill counters, persisting only what changed. Idempotent: a second
// run on the same counters is a no-op.
func (e *StatusEngine) Recompute(ctx context.Context, prescriptionID string) (*StatusChange, error) {
	prescription, err := e.prescriptionRepo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	refills, err := e.refillRepo.ListByPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	states := make([]domain.RefillState, 0, len(refills))
	for _, refill := range refills {
		state := domain.RefillState{
			RefillNumber:  refill.RefillNumber,
			PrescribedQty: refill.PrescribedQty,
			DispensedQty:  refill.DispensedQty,
		}
		states = append(states, state)

		derived := domain.DeriveRefillStatus(state)
		if derived != refill.Status {
			if err := e.refillRepo.UpdateStatus(ctx, refill.ID, derived); err != nil {
				return nil, err
			}
		}
	}

	newStatus := domain.DerivePrescriptionStatus(prescription.Status, states)

	change := &StatusChange{
		PrescriptionID: prescriptionID,
		OldStatus:      prescription.Status,
		NewStatus:      newStatus,
		Changed:        newStatus != prescription.Status,
		Version:        prescription.Version,
	}

	if change.Changed {
		if err := e.prescriptionRepo.UpdateStatus(ctx, prescriptionID, newStatus); err != nil {
			return nil, err
		}

		e.logger.Info().
			Str("prescription_id", prescriptionID).
			Str("old_status", change.OldStatus).
			Str("new_status", change.NewStatus).
			Msg("prescription status recomputed")
	}

	return change, nil
}
