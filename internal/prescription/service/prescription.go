package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	invservice "github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/domain"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/store"
)

// CreatePrescriptionInput is the payload for registering a prescription
type CreatePrescriptionInput struct {
	PatientID           string                  `json:"patient_id" validate:"required,uuid"`
	PrescriberID        string                  `json:"prescriber_id" validate:"required,uuid"`
	TotalRefillsAllowed int                     `json:"total_refills_allowed" validate:"gte=0"`
	Items               []PrescriptionItemInput `json:"items" validate:"required,min=1,dive"`
}

// PrescriptionItemInput is one prescribed drug line in the payload
type PrescriptionItemInput struct {
	DrugID             string  `json:"drug_id" validate:"required,uuid"`
	PrescribedQty      int64   `json:"prescribed_qty" validate:"required,gt=0"`
	Unit               string  `json:"unit" validate:"required"`
	DosageInstructions *string `json:"dosage_instructions,omitempty"`
}

// PrescriptionDetail is a prescription with its items and refills
type PrescriptionDetail struct {
	Prescription *repository.Prescription       `json:"prescription"`
	Items        []*repository.PrescriptionItem `json:"items"`
	Refills      []*repository.Refill           `json:"refills"`
}

// PrescriptionService manages the prescription lifecycle outside of
// dispensing: registration, verification, holds, manual cancellation.
type PrescriptionService struct {
	db               *database.DB
	prescriptionRepo *repository.PrescriptionRepository
	refillRepo       *repository.RefillRepository
	statusEngine     *StatusEngine
	conversion       *invservice.ConversionService
	logger           *logger.Logger
}

// NewPrescriptionService creates a new prescription service
func NewPrescriptionService(
	db *database.DB,
	prescriptionRepo *repository.PrescriptionRepository,
	refillRepo *repository.RefillRepository,
	statusEngine *StatusEngine,
	conversion *invservice.ConversionService,
	log *logger.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		db:               db,
		prescriptionRepo: prescriptionRepo,
		refillRepo:       refillRepo,
		statusEngine:     statusEngine,
		conversion:       conversion,
		logger:           log,
	}
}

// Create registers a new prescription in DRAFT
func (s *PrescriptionService) Create(ctx context.Context, input *CreatePrescriptionInput) (*PrescriptionDetail, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, errors.Forbidden("missing store context")
	}

	prescription := &repository.Prescription{
		StoreID:             storeID,
		PatientID:           input.PatientID,
		PrescriberID:        input.PrescriberID,
		Status:              domain.StatusDraft,
		TotalRefillsAllowed: input.TotalRefillsAllowed,
	}

	items := make([]*repository.PrescriptionItem, 0, len(input.Items))
	for _, in := range input.Items {
		items = append(items, &repository.PrescriptionItem{
			DrugID:             in.DrugID,
			PrescribedQty:      in.PrescribedQty,
			Unit:               in.Unit,
			DosageInstructions: in.DosageInstructions,
		})
	}

	err = s.db.Transaction(ctx, func(txCtx context.Context) error {
		return s.prescriptionRepo.CreateWithItems(txCtx, prescription, items)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prescription_id", prescription.ID).
		Int("items", len(items)).
		Msg("prescription registered")

	return &PrescriptionDetail{Prescription: prescription, Items: items, Refills: nil}, nil
}

// Verify applies the clinical verification supplied by the external review
// service: DRAFT becomes VERIFIED and the full refill set is created
// up-front. A one-time prescription gets exactly one refill, number 0.
func (s *PrescriptionService) Verify(ctx context.Context, prescriptionID string) (*PrescriptionDetail, error) {
	var detail *PrescriptionDetail

	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		prescription, err := s.prescriptionRepo.GetForUpdate(txCtx, prescriptionID)
		if err != nil {
			return err
		}

		if prescription.Status != domain.StatusDraft {
			return errors.StateConflict("only draft prescriptions can be verified").WithDetails(map[string]string{
				"prescription_id": prescription.ID,
				"status":          prescription.Status,
			})
		}

		items, err := s.prescriptionRepo.ListItems(txCtx, prescriptionID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errors.Validation(map[string]string{
				"items": "prescription has no line items",
			})
		}

		// Refill counters are kept in base units; items may be entered in a
		// display unit (3 strips, not 30 tablets).
		var perRefillQty int64
		for _, item := range items {
			baseQty, err := s.conversion.ResolveBaseQuantity(txCtx, item.DrugID, decimal.NewFromInt(item.PrescribedQty), item.Unit)
			if err != nil {
				return err
			}
			baseUnits, err := baseQty.BaseUnits()
			if err != nil {
				return err
			}
			perRefillQty += baseUnits
		}

		refillCount := prescription.TotalRefillsAllowed + 1
		refills := make([]*repository.Refill, 0, refillCount)
		for n := 0; n < refillCount; n++ {
			refill := &repository.Refill{
				PrescriptionID: prescription.ID,
				RefillNumber:   n,
				PrescribedQty:  perRefillQty,
				Status:         domain.RefillPending,
			}
			if err := s.refillRepo.Create(txCtx, refill); err != nil {
				return err
			}
			refills = append(refills, refill)
		}

		if err := s.prescriptionRepo.UpdateStatus(txCtx, prescription.ID, domain.StatusVerified); err != nil {
			return err
		}
		prescription.Status = domain.StatusVerified

		detail = &PrescriptionDetail{Prescription: prescription, Items: items, Refills: refills}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prescription_id", prescriptionID).
		Int("refills", len(detail.Refills)).
		Msg("prescription verified")

	return detail, nil
}

// Get returns a prescription with its items and refills
func (s *PrescriptionService) Get(ctx context.Context, prescriptionID string) (*PrescriptionDetail, error) {
	prescription, err := s.prescriptionRepo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	items, err := s.prescriptionRepo.ListItems(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	refills, err := s.refillRepo.ListByPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	return &PrescriptionDetail{Prescription: prescription, Items: items, Refills: refills}, nil
}

// Hold places a VERIFIED or ACTIVE prescription on hold
func (s *PrescriptionService) Hold(ctx context.Context, prescriptionID, reason string, expectedResolution *time.Time) (*repository.Prescription, error) {
	if reason == "" {
		return nil, errors.Validation(map[string]string{
			"reason": "is required",
		})
	}

	var prescription *repository.Prescription
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		p, err := s.prescriptionRepo.GetForUpdate(txCtx, prescriptionID)
		if err != nil {
			return err
		}

		if !domain.CanHold(p.Status) {
			return errors.StateConflict("prescription cannot be placed on hold").WithDetails(map[string]string{
				"prescription_id": p.ID,
				"status":          p.Status,
			})
		}

		if err := s.prescriptionRepo.SetHold(txCtx, p.ID, domain.StatusOnHold, &reason, expectedResolution); err != nil {
			return err
		}
		p.Status = domain.StatusOnHold
		p.HoldReason = &reason
		p.HoldUntil = expectedResolution
		prescription = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prescription_id", prescriptionID).
		Str("reason", reason).
		Msg("prescription placed on hold")

	return prescription, nil
}

// Resume lifts a hold by re-running the status derivation: back to ACTIVE
// when any dispensing happened, otherwise back to VERIFIED.
func (s *PrescriptionService) Resume(ctx context.Context, prescriptionID string) (*repository.Prescription, error) {
	var prescription *repository.Prescription
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		p, err := s.prescriptionRepo.GetForUpdate(txCtx, prescriptionID)
		if err != nil {
			return err
		}

		if p.Status != domain.StatusOnHold {
			return errors.StateConflict("prescription is not on hold").WithDetails(map[string]string{
				"prescription_id": p.ID,
				"status":          p.Status,
			})
		}

		refills, err := s.refillRepo.ListByPrescription(txCtx, prescriptionID)
		if err != nil {
			return err
		}

		states := make([]domain.RefillState, 0, len(refills))
		for _, refill := range refills {
			states = append(states, domain.RefillState{
				RefillNumber:  refill.RefillNumber,
				PrescribedQty: refill.PrescribedQty,
				DispensedQty:  refill.DispensedQty,
			})
		}

		// derive from VERIFIED so an untouched prescription leaves the
		// hold state instead of sticking to it
		newStatus := domain.DerivePrescriptionStatus(domain.StatusVerified, states)

		if err := s.prescriptionRepo.SetHold(txCtx, p.ID, newStatus, nil, nil); err != nil {
			return err
		}
		p.Status = newStatus
		p.HoldReason = nil
		p.HoldUntil = nil
		prescription = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prescription_id", prescriptionID).
		Str("status", prescription.Status).
		Msg("prescription resumed")

	return prescription, nil
}

// Cancel is the manual terminal transition, allowed from any non-terminal state
func (s *PrescriptionService) Cancel(ctx context.Context, prescriptionID string) (*repository.Prescription, error) {
	var prescription *repository.Prescription
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		p, err := s.prescriptionRepo.GetForUpdate(txCtx, prescriptionID)
		if err != nil {
			return err
		}

		if !domain.CanCancel(p.Status) {
			return errors.StateConflict("prescription is already terminal").WithDetails(map[string]string{
				"prescription_id": p.ID,
				"status":          p.Status,
			})
		}

		if err := s.prescriptionRepo.UpdateStatus(txCtx, p.ID, domain.StatusCancelled); err != nil {
			return err
		}
		p.Status = domain.StatusCancelled
		prescription = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prescription_id", prescriptionID).
		Msg("prescription cancelled")

	return prescription, nil
}
