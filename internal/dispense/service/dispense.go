// Package service orchestrates the dispense workflow. Everything before
// Complete is advisory; Complete is the single transaction that mutates the
// batch ledger, the refill counters and the derived statuses together.
package service

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/domain"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/events"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/fefo"
	invrepo "github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/repository"
	invservice "github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/service"
	rxdomain "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/domain"
	rxrepo "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/repository"
	rxservice "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/actor"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/database"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/store"
)

const deviationAlertWindow = 7 * 24 * time.Hour

// CreateDispenseInput opens a dispense event against a refill. The caller
// states the prescription version it is looking at; an event is never opened
// against a version the operator has not seen.
type CreateDispenseInput struct {
	RefillID            string `json:"refill_id" validate:"required,uuid"`
	DrugID              string `json:"drug_id" validate:"required,uuid"`
	PrescriptionVersion int    `json:"prescription_version" validate:"required,gt=0"`
}

// ScanInput records a barcode scan against an open event
type ScanInput struct {
	Barcode        string          `json:"barcode" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity" validate:"required"`
	Unit           string          `json:"unit" validate:"required"`
	Override       bool            `json:"override"`
	OverrideReason *string         `json:"override_reason,omitempty"`
}

// CompleteInput finalizes a released event. Quantity, when set, replaces the
// quantity recorded at scan time (partial hand-over at the counter).
type CompleteInput struct {
	Quantity decimal.NullDecimal `json:"quantity"`
}

// DispenseDetail is an event with its allocations and deviations
type DispenseDetail struct {
	Event      *domain.DispenseEvent   `json:"event"`
	Lines      []*domain.Line          `json:"lines"`
	Deviations []*repository.Deviation `json:"deviations"`
}

// CompleteResult reports the outcome of a committed dispense
type CompleteResult struct {
	Event              *domain.DispenseEvent   `json:"event"`
	Lines              []*domain.Line          `json:"lines"`
	Refill             *rxrepo.Refill          `json:"refill"`
	RefillStatus       string                  `json:"refill_status"`
	PrescriptionStatus string                  `json:"prescription_status"`
	Deviation          *repository.Deviation   `json:"deviation,omitempty"`
	StatusChange       *rxservice.StatusChange `json:"status_change"`
}

// Workbench groups a store's open events by workflow step
type Workbench struct {
	Created  []*domain.DispenseEvent `json:"created"`
	Scanned  []*domain.DispenseEvent `json:"scanned"`
	Released []*domain.DispenseEvent `json:"released"`
}

// DispenseService drives the dispense workflow end to end
type DispenseService struct {
	db                      *database.DB
	dispenseRepo            *repository.DispenseRepository
	deviationRepo           *repository.DeviationRepository
	prescriptionRepo        *rxrepo.PrescriptionRepository
	refillRepo              *rxrepo.RefillRepository
	batchRepo               *invrepo.BatchRepository
	conversion              *invservice.ConversionService
	statusEngine            *rxservice.StatusEngine
	publisher               *events.DispenseEventPublisher
	deviationAlertThreshold int
	logger                  *logger.Logger
}

// NewDispenseService creates a new dispense service
func NewDispenseService(
	db *database.DB,
	dispenseRepo *repository.DispenseRepository,
	deviationRepo *repository.DeviationRepository,
	prescriptionRepo *rxrepo.PrescriptionRepository,
	refillRepo *rxrepo.RefillRepository,
	batchRepo *invrepo.BatchRepository,
	conversion *invservice.ConversionService,
	statusEngine *rxservice.StatusEngine,
	publisher *events.DispenseEventPublisher,
	deviationAlertThreshold int,
	log *logger.Logger,
) *DispenseService {
	return &DispenseService{
		db:                      db,
		dispenseRepo:            dispenseRepo,
		deviationRepo:           deviationRepo,
		prescriptionRepo:        prescriptionRepo,
		refillRepo:              refillRepo,
		batchRepo:               batchRepo,
		conversion:              conversion,
		statusEngine:            statusEngine,
		publisher:               publisher,
		deviationAlertThreshold: deviationAlertThreshold,
		logger:                  log,
	}
}

func currentActor(ctx context.Context) *actor.Actor {
	if act := actor.FromContext(ctx); act != nil {
		return act
	}
	return actor.SystemActor()
}

// getScoped loads an event and verifies it belongs to the request's store.
// Cross-store IDs read as not found; store boundaries never leak.
func (s *DispenseService) getScoped(ctx context.Context, eventID string, forUpdate bool) (*domain.DispenseEvent, string, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, "", errors.Forbidden("missing store context")
	}

	var event *domain.DispenseEvent
	if forUpdate {
		event, err = s.dispenseRepo.GetForUpdate(ctx, eventID)
	} else {
		event, err = s.dispenseRepo.GetByID(ctx, eventID)
	}
	if err != nil {
		return nil, "", err
	}
	if event.StoreID != storeID {
		return nil, "", errors.NotFound("dispense event")
	}
	return event, storeID, nil
}

// Create opens a dispense event against a refill. The event pins the
// prescription version it was created under; a later line-item edit bumps
// the version and stales the event.
func (s *DispenseService) Create(ctx context.Context, input *CreateDispenseInput) (*domain.DispenseEvent, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, errors.Forbidden("missing store context")
	}
	act := currentActor(ctx)

	refill, err := s.refillRepo.GetByID(ctx, input.RefillID)
	if err != nil {
		return nil, err
	}

	prescription, err := s.prescriptionRepo.GetByID(ctx, refill.PrescriptionID)
	if err != nil {
		return nil, err
	}
	if prescription.StoreID != storeID {
		return nil, errors.NotFound("refill")
	}

	if input.PrescriptionVersion != prescription.Version {
		return nil, errors.StateConflict("prescription changed since it was last viewed").WithDetails(map[string]string{
			"prescription_id": prescription.ID,
			"viewed_version":  itoa(input.PrescriptionVersion),
			"current_version": itoa(prescription.Version),
		})
	}

	if !rxdomain.CanDispense(prescription.Status) {
		return nil, errors.StateConflict("prescription is not dispensable").WithDetails(map[string]string{
			"prescription_id": prescription.ID,
			"status":          prescription.Status,
		})
	}

	if refill.Remaining() == 0 {
		return nil, errors.StateConflict("refill is fully used").WithDetails(map[string]string{
			"refill_id": refill.ID,
			"status":    refill.Status,
		})
	}

	items, err := s.prescriptionRepo.ListItems(ctx, prescription.ID)
	if err != nil {
		return nil, err
	}
	onPrescription := false
	for _, item := range items {
		if item.DrugID == input.DrugID {
			onPrescription = true
			break
		}
	}
	if !onPrescription {
		return nil, errors.Validation(map[string]string{
			"drug_id": "drug is not on the prescription",
		})
	}

	event := &domain.DispenseEvent{
		StoreID:             storeID,
		RefillID:            refill.ID,
		PrescriptionID:      prescription.ID,
		PrescriptionVersion: prescription.Version,
		DrugID:              input.DrugID,
		Status:              domain.StatusCreated,
		CreatedBy:           act.ID,
	}
	if err := s.dispenseRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("dispense_event_id", event.ID).
		Str("refill_id", refill.ID).
		Str("prescription_id", prescription.ID).
		Msg("dispense event created")

	s.publisher.PublishCreated(ctx, event)
	return event, nil
}

// Get returns an event with its lines and deviations
func (s *DispenseService) Get(ctx context.Context, eventID string) (*DispenseDetail, error) {
	event, _, err := s.getScoped(ctx, eventID, false)
	if err != nil {
		return nil, err
	}

	lines, err := s.dispenseRepo.ListLines(ctx, eventID)
	if err != nil {
		return nil, err
	}

	deviations, err := s.deviationRepo.ListByDispenseEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return &DispenseDetail{Event: event, Lines: lines, Deviations: deviations}, nil
}

// Scan resolves a barcode to a batch, verifies it against the event's drug,
// and records the selection. A mismatch pauses the workflow; a pharmacist
// override moves it forward and leaves a deviation record behind.
func (s *DispenseService) Scan(ctx context.Context, eventID string, input *ScanInput) (*domain.DispenseEvent, error) {
	event, storeID, err := s.getScoped(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	act := currentActor(ctx)
	now := time.Now()

	batch, err := s.batchRepo.GetByBarcode(ctx, storeID, input.Barcode)
	if err != nil {
		return nil, err
	}

	if batch.IsExpired(now) {
		return nil, errors.Validation(map[string]string{
			"barcode": "batch " + batch.BatchNumber + " is expired",
		})
	}
	if batch.Status != invrepo.BatchStatusActive {
		return nil, errors.Validation(map[string]string{
			"barcode": "batch " + batch.BatchNumber + " is " + batch.Status,
		})
	}

	overridden := false
	if batch.DrugID != event.DrugID {
		if !input.Override {
			return nil, errors.ScanMismatch("scanned batch belongs to a different drug").WithDetails(map[string]string{
				"dispense_event_id": event.ID,
				"expected_drug_id":  event.DrugID,
				"scanned_drug_id":   batch.DrugID,
				"batch_id":          batch.ID,
			})
		}
		if !act.IsPharmacist() {
			return nil, errors.Forbidden("scan override requires a pharmacist")
		}
		overridden = true
	}

	if err := event.MarkScanned(batch.ID, input.Barcode, input.Quantity, input.Unit, overridden, act.ID, now); err != nil {
		return nil, err
	}

	var deviation *repository.Deviation
	err = s.db.Transaction(ctx, func(txCtx context.Context) error {
		if err := s.dispenseRepo.Update(txCtx, event); err != nil {
			return err
		}

		if overridden {
			deviation = &repository.Deviation{
				StoreID:         storeID,
				DispenseEventID: event.ID,
				DrugID:          event.DrugID,
				Kind:            repository.DeviationScanOverride,
				ActualBatchID:   &batch.ID,
				ActorID:         act.ID,
				Reason:          input.OverrideReason,
			}
			return s.deviationRepo.Create(txCtx, deviation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishScanned(ctx, event)
	if deviation != nil {
		s.logger.Warn().
			Str("dispense_event_id", event.ID).
			Str("batch_id", batch.ID).
			Str("actor_id", act.ID).
			Msg("scan mismatch overridden")
		s.publisher.PublishDeviationRecorded(ctx, deviation)
	}

	return event, nil
}

// Release applies the pharmacist visual check gate
func (s *DispenseService) Release(ctx context.Context, eventID string, visualCheckConfirmed bool) (*domain.DispenseEvent, error) {
	act := currentActor(ctx)
	if !act.IsPharmacist() {
		return nil, errors.Forbidden("release requires a pharmacist")
	}

	event, _, err := s.getScoped(ctx, eventID, false)
	if err != nil {
		return nil, err
	}

	if err := event.Release(act.ID, visualCheckConfirmed, time.Now()); err != nil {
		return nil, err
	}
	if err := s.dispenseRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	s.publisher.PublishReleased(ctx, event)
	return event, nil
}

// Complete commits a released event in one transaction: locked re-reads,
// unit conversion, refill guard, authoritative FEFO re-run, guarded stock
// decrements, counter increment and status recomputation. Any failure rolls
// the whole commit back; nothing is ever partially dispensed.
func (s *DispenseService) Complete(ctx context.Context, eventID string, input *CompleteInput) (*CompleteResult, error) {
	act := currentActor(ctx)
	now := time.Now()

	var (
		result          CompleteResult
		exhaustedBatch  []*invrepo.InventoryBatch
		stockDeductions []messagingDeduction
	)

	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		event, storeID, err := s.getScoped(txCtx, eventID, true)
		if err != nil {
			return err
		}
		if event.Status != domain.StatusReleased {
			return errors.StateConflict("complete requires a released event").WithDetails(map[string]string{
				"dispense_event_id": event.ID,
				"status":            event.Status,
			})
		}

		refill, err := s.refillRepo.GetForUpdate(txCtx, event.RefillID)
		if err != nil {
			return err
		}
		prescription, err := s.prescriptionRepo.GetForUpdate(txCtx, event.PrescriptionID)
		if err != nil {
			return err
		}

		if prescription.Version != event.PrescriptionVersion {
			return errors.StateConflict("prescription changed since dispense event was created").WithDetails(map[string]string{
				"dispense_event_id": event.ID,
				"event_version":     itoa(event.PrescriptionVersion),
				"current_version":   itoa(prescription.Version),
			})
		}
		if !rxdomain.CanDispense(prescription.Status) {
			return errors.StateConflict("prescription is not dispensable").WithDetails(map[string]string{
				"prescription_id": prescription.ID,
				"status":          prescription.Status,
			})
		}

		quantity := event.QuantityRequested.Decimal
		if input != nil && input.Quantity.Valid {
			quantity = input.Quantity.Decimal
		}
		unit := ""
		if event.RequestedUnit != nil {
			unit = *event.RequestedUnit
		}

		baseQty, err := s.conversion.ResolveBaseQuantity(txCtx, event.DrugID, quantity, unit)
		if err != nil {
			return err
		}
		baseUnits, err := baseQty.BaseUnits()
		if err != nil {
			return err
		}

		if refill.Remaining() < baseUnits {
			return errors.InsufficientStock("refill cannot cover requested quantity").WithDetails(map[string]string{
				"refill_id": refill.ID,
				"requested": decimal.NewFromInt(baseUnits).String(),
				"remaining": decimal.NewFromInt(refill.Remaining()).String(),
			})
		}

		batches, err := s.batchRepo.ListActiveForDrugForUpdate(txCtx, storeID, event.DrugID)
		if err != nil {
			return err
		}

		// The advisory recommendation shown at scan time is never trusted
		// here; only this re-run against locked rows is.
		rec, err := fefo.Recommend(batches, baseUnits, now)
		if err != nil {
			var insufficientErr *fefo.InsufficientStockError
			if errors.As(err, &insufficientErr) {
				return errors.InsufficientStock("stock cannot cover requested quantity").WithDetails(map[string]string{
					"drug_id":   event.DrugID,
					"requested": decimal.NewFromInt(insufficientErr.Requested).String(),
					"available": decimal.NewFromInt(insufficientErr.Available).String(),
				})
			}
			return err
		}

		allocations := rec.Covering
		if event.SelectedBatchID != nil && *event.SelectedBatchID != rec.RecommendedBatchID {
			allocations, err = fefo.AllocateFrom(batches, *event.SelectedBatchID, baseUnits)
			if err != nil {
				var insufficientErr *fefo.InsufficientStockError
				if errors.As(err, &insufficientErr) {
					return errors.InsufficientStock("stock cannot cover requested quantity").WithDetails(map[string]string{
						"drug_id":   event.DrugID,
						"requested": decimal.NewFromInt(insufficientErr.Requested).String(),
						"available": decimal.NewFromInt(insufficientErr.Available).String(),
					})
				}
				// The selected batch was in the ledger at scan time; if the
				// locked re-read no longer lists it, its stock changed
				// underneath us, not its existence.
				if errors.Is(err, errors.ErrNotFound) {
					return errors.InsufficientStock("selected batch is no longer dispensable").WithDetails(map[string]string{
						"drug_id":  event.DrugID,
						"batch_id": *event.SelectedBatchID,
					})
				}
				return err
			}

			deviation := &repository.Deviation{
				StoreID:            storeID,
				DispenseEventID:    event.ID,
				DrugID:             event.DrugID,
				Kind:               repository.DeviationFEFOOverride,
				RecommendedBatchID: &rec.RecommendedBatchID,
				ActualBatchID:      event.SelectedBatchID,
				DeviationDays:      deviationDays(batches, rec.RecommendedBatchID, *event.SelectedBatchID),
				ActorID:            act.ID,
			}
			if err := s.deviationRepo.Create(txCtx, deviation); err != nil {
				return err
			}
			result.Deviation = deviation
		}

		referenceType := "dispense_event"
		for _, alloc := range allocations {
			remaining, err := s.batchRepo.DecrementStock(txCtx, alloc.BatchID, alloc.Quantity)
			if err != nil {
				return err
			}

			movement := &invrepo.StockMovement{
				StoreID:       storeID,
				BatchID:       alloc.BatchID,
				DrugID:        event.DrugID,
				MovementType:  invrepo.MovementOut,
				Quantity:      alloc.Quantity,
				ReferenceType: &referenceType,
				ReferenceID:   &event.ID,
				PerformedBy:   act.ID,
			}
			if err := s.batchRepo.RecordMovement(txCtx, movement); err != nil {
				return err
			}

			stockDeductions = append(stockDeductions, messagingDeduction{
				batchID:   alloc.BatchID,
				quantity:  alloc.Quantity,
				remaining: remaining,
			})
			if remaining == 0 {
				exhaustedBatch = append(exhaustedBatch, findBatch(batches, alloc.BatchID))
			}
		}

		updatedRefill, err := s.refillRepo.AddDispensed(txCtx, refill.ID, baseUnits)
		if err != nil {
			return err
		}
		result.Refill = updatedRefill
		result.RefillStatus = rxdomain.DeriveRefillStatus(rxdomain.RefillState{
			RefillNumber:  updatedRefill.RefillNumber,
			PrescribedQty: updatedRefill.PrescribedQty,
			DispensedQty:  updatedRefill.DispensedQty,
		})

		change, err := s.statusEngine.Recompute(txCtx, event.PrescriptionID)
		if err != nil {
			return err
		}
		result.StatusChange = change
		result.PrescriptionStatus = change.NewStatus

		if err := event.Complete(baseUnits, act.ID, now); err != nil {
			return err
		}
		if err := s.dispenseRepo.Update(txCtx, event); err != nil {
			return err
		}

		lines := make([]*domain.Line, 0, len(allocations))
		for _, alloc := range allocations {
			lines = append(lines, &domain.Line{
				DispenseEventID: event.ID,
				BatchID:         alloc.BatchID,
				BatchNumber:     alloc.BatchNumber,
				Quantity:        alloc.Quantity,
			})
		}
		if err := s.dispenseRepo.CreateLines(txCtx, lines); err != nil {
			return err
		}

		result.Event = event
		result.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := result.Event
	s.logger.Info().
		Str("dispense_event_id", event.ID).
		Str("refill_id", event.RefillID).
		Int64("base_units", *event.QuantityDispensedBaseUnits).
		Int("batches", len(result.Lines)).
		Msg("dispense committed")

	s.publisher.PublishCompleted(ctx, event, result.RefillStatus, result.PrescriptionStatus)
	for _, d := range stockDeductions {
		s.publisher.PublishStockDeducted(ctx, event.StoreID, d.batchID, event.DrugID, event.ID, d.quantity, d.remaining, act.ID)
	}
	for _, b := range exhaustedBatch {
		if b != nil {
			s.publisher.PublishBatchExhausted(ctx, event.StoreID, b.ID, b.BatchNumber, b.DrugID)
		}
	}
	if result.Refill.Remaining() == 0 {
		s.publisher.PublishRefillExhausted(ctx, event.StoreID, event.PrescriptionID, result.Refill.ID, result.Refill.RefillNumber)
	}
	if result.StatusChange.Changed {
		s.publisher.PublishPrescriptionStatusChanged(ctx, event.StoreID,
			event.PrescriptionID, result.StatusChange.OldStatus, result.StatusChange.NewStatus, result.StatusChange.Version)
	}
	if result.Deviation != nil {
		s.publisher.PublishDeviationRecorded(ctx, result.Deviation)
		s.checkDeviationAlert(ctx, event.StoreID, act.ID, now)
	}

	return &result, nil
}

// Cancel aborts a non-terminal event. Nothing has touched the ledger yet,
// so there is nothing to restock.
func (s *DispenseService) Cancel(ctx context.Context, eventID, reason string) (*domain.DispenseEvent, error) {
	event, _, err := s.getScoped(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	act := currentActor(ctx)

	if err := event.Cancel(reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.dispenseRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("dispense_event_id", event.ID).
		Str("reason", reason).
		Msg("dispense event cancelled")

	s.publisher.PublishCancelled(ctx, event, act.ID)
	return event, nil
}

// GetWorkbench returns the store's open events grouped by workflow step
func (s *DispenseService) GetWorkbench(ctx context.Context) (*Workbench, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, errors.Forbidden("missing store context")
	}

	all, err := s.dispenseRepo.ListByStore(ctx, storeID, "")
	if err != nil {
		return nil, err
	}

	wb := &Workbench{
		Created:  make([]*domain.DispenseEvent, 0),
		Scanned:  make([]*domain.DispenseEvent, 0),
		Released: make([]*domain.DispenseEvent, 0),
	}
	for _, event := range all {
		switch event.Status {
		case domain.StatusCreated:
			wb.Created = append(wb.Created, event)
		case domain.StatusScanned:
			wb.Scanned = append(wb.Scanned, event)
		case domain.StatusReleased:
			wb.Released = append(wb.Released, event)
		}
	}
	return wb, nil
}

// DeviationStats reports FEFO adherence for the store over a window
func (s *DispenseService) DeviationStats(ctx context.Context, since time.Time) (*repository.AdherenceStats, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, errors.Forbidden("missing store context")
	}
	return s.deviationRepo.Stats(ctx, storeID, since)
}

// checkDeviationAlert publishes a behavioral alert when the actor's weekly
// deviation count crosses the configured threshold. Best effort.
func (s *DispenseService) checkDeviationAlert(ctx context.Context, storeID, actorID string, now time.Time) {
	if s.deviationAlertThreshold <= 0 {
		return
	}

	count, err := s.deviationRepo.CountRecentByActor(ctx, storeID, actorID, now.Add(-deviationAlertWindow))
	if err != nil {
		s.logger.Error().Err(err).Str("actor_id", actorID).Msg("failed to count recent deviations")
		return
	}
	if count >= s.deviationAlertThreshold {
		s.logger.Warn().
			Str("actor_id", actorID).
			Int("weekly_count", count).
			Int("threshold", s.deviationAlertThreshold).
			Msg("deviation threshold crossed")
		s.publisher.PublishDeviationAlert(ctx, storeID, actorID, count, s.deviationAlertThreshold)
	}
}

type messagingDeduction struct {
	batchID   string
	quantity  int64
	remaining int64
}

func findBatch(batches []*invrepo.InventoryBatch, id string) *invrepo.InventoryBatch {
	for _, b := range batches {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// deviationDays is how many days later the selected batch expires than the
// recommended one. Negative means the operator picked an earlier expiry.
func deviationDays(batches []*invrepo.InventoryBatch, recommendedID, selectedID string) int {
	recommended := findBatch(batches, recommendedID)
	selected := findBatch(batches, selectedID)
	if recommended == nil || selected == nil {
		return 0
	}
	return int(selected.ExpiryDate.Sub(recommended.ExpiryDate).Hours() / 24)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
