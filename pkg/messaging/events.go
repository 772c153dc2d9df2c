package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Dispense lifecycle events
	EventDispenseCreated   = "dispense.event.created"
	EventDispenseScanned   = "dispense.event.scanned"
	EventDispenseReleased  = "dispense.event.released"
	EventDispenseCompleted = "dispense.event.completed"
	EventDispenseCancelled = "dispense.event.cancelled"

	// Deviation events
	EventDeviationRecorded = "dispense.deviation.recorded"
	EventDeviationAlert    = "dispense.deviation.alert"

	// Prescription events
	EventPrescriptionStatusChanged = "prescription.status.changed"
	EventRefillExhausted           = "prescription.refill.exhausted"

	// Inventory events
	EventBatchExhausted = "inventory.batch.exhausted"
	EventBatchExpiring  = "inventory.batch.expiring"
	EventStockDeducted  = "inventory.stock.deducted"

	// Events from the external clinical system
	EventPrescriptionReceived = "clinical.prescription.received"
)

// Exchange names
const (
	ExchangeDispenseEvents     = "dispense.events"
	ExchangePrescriptionEvents = "prescription.events"
	ExchangeInventoryEvents    = "inventory.events"
	ExchangeClinicalEvents     = "clinical.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Dispense Events

// DispenseCreatedEvent is published when a dispense event is opened for a refill
type DispenseCreatedEvent struct {
	DispenseID     string `json:"dispense_id"`
	PrescriptionID string `json:"prescription_id"`
	RefillID       string `json:"refill_id"`
	StoreID        string `json:"store_id"`
	CreatedBy      string `json:"created_by"`
	LineCount      int    `json:"line_count"`
}

// DispenseScannedEvent is published when a batch scan is verified or overridden
type DispenseScannedEvent struct {
	DispenseID   string `json:"dispense_id"`
	StoreID      string `json:"store_id"`
	BatchID      string `json:"batch_id"`
	ScanOverride bool   `json:"scan_override"`
	ScannedBy    string `json:"scanned_by"`
}

// DispenseReleasedEvent is published after the pharmacist visual check
type DispenseReleasedEvent struct {
	DispenseID string `json:"dispense_id"`
	StoreID    string `json:"store_id"`
	ReleasedBy string `json:"released_by"`
}

// DispenseCompletedEvent is published when a dispense event commits.
// It carries the post-commit refill and prescription statuses so downstream
// consumers (billing, notifications) do not need to re-query.
type DispenseCompletedEvent struct {
	DispenseID         string    `json:"dispense_id"`
	PrescriptionID     string    `json:"prescription_id"`
	RefillID           string    `json:"refill_id"`
	StoreID            string    `json:"store_id"`
	CompletedBy        string    `json:"completed_by"`
	CompletedAt        time.Time `json:"completed_at"`
	RefillStatus       string    `json:"refill_status"`
	PrescriptionStatus string    `json:"prescription_status"`
	TotalQuantity      int64     `json:"total_quantity"`
}

// DispenseCancelledEvent is published when an in-flight dispense is cancelled
type DispenseCancelledEvent struct {
	DispenseID     string `json:"dispense_id"`
	PrescriptionID string `json:"prescription_id"`
	RefillID       string `json:"refill_id"`
	StoreID        string `json:"store_id"`
	CancelledBy    string `json:"cancelled_by"`
	Reason         string `json:"reason,omitempty"`
}

// Deviation Events

// DeviationRecordedEvent is published when a pharmacist overrides the
// recommended batch and the deviation is logged
type DeviationRecordedEvent struct {
	DeviationID        string `json:"deviation_id"`
	DispenseID         string `json:"dispense_id"`
	DrugID             string `json:"drug_id"`
	StoreID            string `json:"store_id"`
	Kind               string `json:"kind"`
	RecommendedBatchID string `json:"recommended_batch_id"`
	SelectedBatchID    string `json:"selected_batch_id"`
	DeviationDays      int    `json:"deviation_days"`
	ActorID            string `json:"actor_id"`
	Reason             string `json:"reason,omitempty"`
}

// DeviationAlertEvent is published when an actor's weekly deviation count
// crosses the configured threshold
type DeviationAlertEvent struct {
	ActorID     string `json:"actor_id"`
	StoreID     string `json:"store_id"`
	WeeklyCount int    `json:"weekly_count"`
	Threshold   int    `json:"threshold"`
}

// Prescription Events

// PrescriptionStatusChangedEvent is published when a derived prescription
// status transitions
type PrescriptionStatusChangedEvent struct {
	PrescriptionID string `json:"prescription_id"`
	StoreID        string `json:"store_id"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status"`
	Version        int    `json:"version"`
}

// RefillExhaustedEvent is published when a refill reaches its prescribed quantity
type RefillExhaustedEvent struct {
	PrescriptionID string `json:"prescription_id"`
	RefillID       string `json:"refill_id"`
	RefillNumber   int    `json:"refill_number"`
	StoreID        string `json:"store_id"`
}

// Inventory Events

// BatchExhaustedEvent is published when a batch's stock reaches zero
type BatchExhaustedEvent struct {
	BatchID     string `json:"batch_id"`
	BatchNumber string `json:"batch_number"`
	DrugID      string `json:"drug_id"`
	StoreID     string `json:"store_id"`
}

// BatchExpiringEvent is published by the expiry scan for batches inside the
// warning window
type BatchExpiringEvent struct {
	BatchID     string    `json:"batch_id"`
	BatchNumber string    `json:"batch_number"`
	DrugID      string    `json:"drug_id"`
	DrugName    string    `json:"drug_name"`
	StoreID     string    `json:"store_id"`
	ExpiryDate  time.Time `json:"expiry_date"`
	DaysUntil   int       `json:"days_until"`
	Quantity    int64     `json:"quantity"`
}

// StockDeductedEvent is published for each batch decrement during a dispense commit
type StockDeductedEvent struct {
	BatchID      string `json:"batch_id"`
	DrugID       string `json:"drug_id"`
	StoreID      string `json:"store_id"`
	DispenseID   string `json:"dispense_id"`
	Quantity     int64  `json:"quantity"`
	RemainingQty int64  `json:"remaining_qty"`
	PerformedBy  string `json:"performed_by"`
}

// Clinical Events

// PrescriptionReceivedEvent is the payload transmitted by the clinical
// system when a prescriber sends a prescription to this store
type PrescriptionReceivedEvent struct {
	StoreID             string                     `json:"store_id"`
	PatientID           string                     `json:"patient_id"`
	PrescriberID        string                     `json:"prescriber_id"`
	TotalRefillsAllowed int                        `json:"total_refills_allowed"`
	Items               []PrescriptionReceivedItem `json:"items"`
}

// PrescriptionReceivedItem is one prescribed drug line in the transmission
type PrescriptionReceivedItem struct {
	DrugID             string  `json:"drug_id"`
	PrescribedQty      int64   `json:"prescribed_qty"`
	Unit               string  `json:"unit"`
	DosageInstructions *string `json:"dosage_instructions,omitempty"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
