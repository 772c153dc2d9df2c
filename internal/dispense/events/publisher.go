// Package events publishes dispense lifecycle events. Publishing is always
// best-effort: the commit already happened by the time these run, so a broker
// outage logs and moves on rather than failing the request.
package events

import (
	"context"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/domain"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/messaging"
)

// Sink publishes raw events. *messaging.Publisher satisfies it; tests
// substitute a recorder.
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// DispenseEventPublisher publishes dispense-related events
type DispenseEventPublisher struct {
	sink   Sink
	logger *logger.Logger
}

// NewDispenseEventPublisher creates a publisher bound to the dispense exchange
func NewDispenseEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*DispenseEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeDispenseEvents, "dispense-service", log)
	if err != nil {
		return nil, err
	}

	return &DispenseEventPublisher{
		sink:   publisher,
		logger: log,
	}, nil
}

// NewWithSink creates a publisher over an existing sink. Used by tests.
func NewWithSink(sink Sink, log *logger.Logger) *DispenseEventPublisher {
	return &DispenseEventPublisher{
		sink:   sink,
		logger: log,
	}
}

func (p *DispenseEventPublisher) publish(ctx context.Context, eventType string, data interface{}) {
	if p == nil || p.sink == nil {
		return
	}
	if err := p.sink.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

// PublishCreated publishes a dispense created event
func (p *DispenseEventPublisher) PublishCreated(ctx context.Context, event *domain.DispenseEvent) {
	p.publish(ctx, messaging.EventDispenseCreated, messaging.DispenseCreatedEvent{
		DispenseID:     event.ID,
		PrescriptionID: event.PrescriptionID,
		RefillID:       event.RefillID,
		StoreID:        event.StoreID,
		CreatedBy:      event.CreatedBy,
	})
}

// PublishScanned publishes a dispense scanned event
func (p *DispenseEventPublisher) PublishScanned(ctx context.Context, event *domain.DispenseEvent) {
	batchID := ""
	if event.SelectedBatchID != nil {
		batchID = *event.SelectedBatchID
	}
	scannedBy := ""
	if event.ScannedBy != nil {
		scannedBy = *event.ScannedBy
	}

	p.publish(ctx, messaging.EventDispenseScanned, messaging.DispenseScannedEvent{
		DispenseID:   event.ID,
		StoreID:      event.StoreID,
		BatchID:      batchID,
		ScanOverride: event.ScanOverride,
		ScannedBy:    scannedBy,
	})
}

// PublishReleased publishes a dispense released event
func (p *DispenseEventPublisher) PublishReleased(ctx context.Context, event *domain.DispenseEvent) {
	releasedBy := ""
	if event.ReleasedBy != nil {
		releasedBy = *event.ReleasedBy
	}

	p.publish(ctx, messaging.EventDispenseReleased, messaging.DispenseReleasedEvent{
		DispenseID: event.ID,
		StoreID:    event.StoreID,
		ReleasedBy: releasedBy,
	})
}

// PublishCompleted publishes a dispense completed event carrying the
// post-commit refill and prescription statuses
func (p *DispenseEventPublisher) PublishCompleted(ctx context.Context, event *domain.DispenseEvent, refillStatus, prescriptionStatus string) {
	completedBy := ""
	if event.CompletedBy != nil {
		completedBy = *event.CompletedBy
	}
	var totalQty int64
	if event.QuantityDispensedBaseUnits != nil {
		totalQty = *event.QuantityDispensedBaseUnits
	}

	data := messaging.DispenseCompletedEvent{
		DispenseID:         event.ID,
		PrescriptionID:     event.PrescriptionID,
		RefillID:           event.RefillID,
		StoreID:            event.StoreID,
		CompletedBy:        completedBy,
		RefillStatus:       refillStatus,
		PrescriptionStatus: prescriptionStatus,
		TotalQuantity:      totalQty,
	}
	if event.CompletedAt != nil {
		data.CompletedAt = *event.CompletedAt
	}

	p.publish(ctx, messaging.EventDispenseCompleted, data)
}

// PublishCancelled publishes a dispense cancelled event
func (p *DispenseEventPublisher) PublishCancelled(ctx context.Context, event *domain.DispenseEvent, cancelledBy string) {
	reason := ""
	if event.CancelReason != nil {
		reason = *event.CancelReason
	}

	p.publish(ctx, messaging.EventDispenseCancelled, messaging.DispenseCancelledEvent{
		DispenseID:     event.ID,
		PrescriptionID: event.PrescriptionID,
		RefillID:       event.RefillID,
		StoreID:        event.StoreID,
		CancelledBy:    cancelledBy,
		Reason:         reason,
	})
}

// PublishDeviationRecorded publishes a deviation recorded event
func (p *DispenseEventPublisher) PublishDeviationRecorded(ctx context.Context, d *repository.Deviation) {
	recommended := ""
	if d.RecommendedBatchID != nil {
		recommended = *d.RecommendedBatchID
	}
	selected := ""
	if d.ActualBatchID != nil {
		selected = *d.ActualBatchID
	}
	reason := ""
	if d.Reason != nil {
		reason = *d.Reason
	}

	p.publish(ctx, messaging.EventDeviationRecorded, messaging.DeviationRecordedEvent{
		DeviationID:        d.ID,
		DispenseID:         d.DispenseEventID,
		DrugID:             d.DrugID,
		StoreID:            d.StoreID,
		Kind:               d.Kind,
		RecommendedBatchID: recommended,
		SelectedBatchID:    selected,
		DeviationDays:      d.DeviationDays,
		ActorID:            d.ActorID,
		Reason:             reason,
	})
}

// PublishDeviationAlert publishes a behavioral deviation alert
func (p *DispenseEventPublisher) PublishDeviationAlert(ctx context.Context, storeID, actorID string, weeklyCount, threshold int) {
	p.publish(ctx, messaging.EventDeviationAlert, messaging.DeviationAlertEvent{
		ActorID:     actorID,
		StoreID:     storeID,
		WeeklyCount: weeklyCount,
		Threshold:   threshold,
	})
}

// PublishPrescriptionStatusChanged publishes a derived status transition
func (p *DispenseEventPublisher) PublishPrescriptionStatusChanged(ctx context.Context, storeID, prescriptionID, oldStatus, newStatus string, version int) {
	p.publish(ctx, messaging.EventPrescriptionStatusChanged, messaging.PrescriptionStatusChangedEvent{
		PrescriptionID: prescriptionID,
		StoreID:        storeID,
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
		Version:        version,
	})
}

// PublishRefillExhausted publishes a refill exhausted event
func (p *DispenseEventPublisher) PublishRefillExhausted(ctx context.Context, storeID, prescriptionID, refillID string, refillNumber int) {
	p.publish(ctx, messaging.EventRefillExhausted, messaging.RefillExhaustedEvent{
		PrescriptionID: prescriptionID,
		RefillID:       refillID,
		RefillNumber:   refillNumber,
		StoreID:        storeID,
	})
}

// PublishBatchExhausted publishes a batch exhausted event
func (p *DispenseEventPublisher) PublishBatchExhausted(ctx context.Context, storeID, batchID, batchNumber, drugID string) {
	p.publish(ctx, messaging.EventBatchExhausted, messaging.BatchExhaustedEvent{
		BatchID:     batchID,
		BatchNumber: batchNumber,
		DrugID:      drugID,
		StoreID:     storeID,
	})
}

// PublishStockDeducted publishes one stock deduction made during a commit
func (p *DispenseEventPublisher) PublishStockDeducted(ctx context.Context, storeID, batchID, drugID, dispenseID string, quantity, remaining int64, performedBy string) {
	p.publish(ctx, messaging.EventStockDeducted, messaging.StockDeductedEvent{
		BatchID:      batchID,
		DrugID:       drugID,
		StoreID:      storeID,
		DispenseID:   dispenseID,
		Quantity:     quantity,
		RemainingQty: remaining,
		PerformedBy:  performedBy,
	})
}
