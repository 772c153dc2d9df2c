package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/fefo"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/actor"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/store"
)

// ReceiveBatchInput is the payload for receiving a new batch into stock
type ReceiveBatchInput struct {
	DrugID       string          `json:"drug_id" validate:"required,uuid"`
	BatchNumber  string          `json:"batch_number" validate:"required"`
	Barcode      *string         `json:"barcode,omitempty"`
	Quantity     int64           `json:"quantity" validate:"required,gt=0"`
	ExpiryDate   time.Time       `json:"expiry_date" validate:"required"`
	ReceivedDate time.Time       `json:"received_date"`
	MRP          decimal.Decimal `json:"mrp"`
	ReceivedUnit string          `json:"received_unit" validate:"required"`
}

// InventoryService orchestrates the batch ledger: receiving stock, status
// transitions, expiry reporting, and advisory FEFO recommendations. It
// never decrements stock; only the dispense commit does that.
type InventoryService struct {
	batchRepo *repository.BatchRepository
	drugRepo  *repository.DrugRepository
	logger    *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	batchRepo *repository.BatchRepository,
	drugRepo *repository.DrugRepository,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		batchRepo: batchRepo,
		drugRepo:  drugRepo,
		logger:    log,
	}
}

// ReceiveBatch adds a new batch to the ledger with an IN movement
func (s *InventoryService) ReceiveBatch(ctx context.Context, input *ReceiveBatchInput) (*repository.InventoryBatch, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, errors.Forbidden("missing store context")
	}

	if _, err := s.drugRepo.GetByID(ctx, input.DrugID); err != nil {
		return nil, err
	}

	if !input.ExpiryDate.After(time.Now()) {
		return nil, errors.Validation(map[string]string{
			"expiry_date": "batch is already expired",
		})
	}

	received := input.ReceivedDate
	if received.IsZero() {
		received = time.Now()
	}

	batch := &repository.InventoryBatch{
		StoreID:         storeID,
		DrugID:          input.DrugID,
		BatchNumber:     input.BatchNumber,
		Barcode:         input.Barcode,
		QuantityInStock: input.Quantity,
		ExpiryDate:      input.ExpiryDate,
		ReceivedDate:    received,
		Status:          repository.BatchStatusActive,
		MRP:             input.MRP,
		ReceivedUnit:    input.ReceivedUnit,
	}

	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return nil, err
	}

	act := actor.FromContext(ctx)
	if act == nil {
		act = actor.SystemActor()
	}

	movement := &repository.StockMovement{
		StoreID:      storeID,
		BatchID:      batch.ID,
		DrugID:       batch.DrugID,
		MovementType: repository.MovementIn,
		Quantity:     input.Quantity,
		PerformedBy:  act.ID,
	}
	if err := s.batchRepo.RecordMovement(ctx, movement); err != nil {
		s.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to record receive movement")
	}

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("drug_id", batch.DrugID).
		Int64("quantity", batch.QuantityInStock).
		Msg("batch received")

	return batch, nil
}

// ChangeBatchStatus applies a manual status transition (quarantine, recall,
// reserve, reactivate). EXHAUSTED is ledger-derived and cannot be set by hand.
func (s *InventoryService) ChangeBatchStatus(ctx context.Context, batchID, newStatus string) (*repository.InventoryBatch, error) {
	switch newStatus {
	case repository.BatchStatusActive, repository.BatchStatusQuarantined,
		repository.BatchStatusRecalled, repository.BatchStatusReserved:
	default:
		return nil, errors.Validation(map[string]string{
			"status": "must be one of ACTIVE, QUARANTINED, RECALLED, RESERVED",
		})
	}

	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if batch.Status == repository.BatchStatusExhausted {
		return nil, errors.StateConflict("exhausted batch cannot change status").WithDetails(map[string]string{
			"batch_id": batch.ID,
			"status":   batch.Status,
		})
	}

	if err := s.batchRepo.UpdateStatus(ctx, batchID, newStatus); err != nil {
		return nil, err
	}

	act := actor.FromContext(ctx)
	if act == nil {
		act = actor.SystemActor()
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Str("old_status", batch.Status).
		Str("new_status", newStatus).
		Str("actor_id", act.ID).
		Msg("batch status changed")

	batch.Status = newStatus
	return batch, nil
}

// GetBatch returns a batch by ID
func (s *InventoryService) GetBatch(ctx context.Context, batchID string) (*repository.InventoryBatch, error) {
	return s.batchRepo.GetByID(ctx, batchID)
}

// ListBatchesForDrug lists the drug's ACTIVE in-stock batches in FEFO order
func (s *InventoryService) ListBatchesForDrug(ctx context.Context, drugID string) ([]*repository.InventoryBatch, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, errors.Forbidden("missing store context")
	}
	return s.batchRepo.ListActiveForDrug(ctx, storeID, drugID)
}

// Recommend runs an advisory FEFO recommendation against a live snapshot.
// The result is informational until re-validated inside a dispense commit.
func (s *InventoryService) Recommend(ctx context.Context, drugID string, requestedBaseQty int64) (*fefo.Recommendation, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, errors.Forbidden("missing store context")
	}

	batches, err := s.batchRepo.ListActiveForDrug(ctx, storeID, drugID)
	if err != nil {
		return nil, err
	}

	rec, err := fefo.Recommend(batches, requestedBaseQty, time.Now())
	if err != nil {
		var insufficientErr *fefo.InsufficientStockError
		if errors.As(err, &insufficientErr) {
			return nil, errors.InsufficientStock("stock cannot cover requested quantity").WithDetails(map[string]string{
				"drug_id":   drugID,
				"requested": decimal.NewFromInt(insufficientErr.Requested).String(),
				"available": decimal.NewFromInt(insufficientErr.Available).String(),
			})
		}
		return nil, err
	}

	return rec, nil
}

// ExpiringBatches returns in-stock batches expiring inside the warning window
func (s *InventoryService) ExpiringBatches(ctx context.Context, withinDays int) ([]*repository.InventoryBatch, error) {
	storeID, err := store.StoreID(ctx)
	if err != nil {
		return nil, errors.Forbidden("missing store context")
	}
	return s.batchRepo.GetExpiringBatches(ctx, storeID, withinDays)
}
