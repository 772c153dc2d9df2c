package consumers

import (
	"context"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/messaging"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/store"
)

// IntakeConsumer registers prescriptions transmitted by the external
// clinical system. Each received prescription lands in DRAFT and waits
// for verification like any counter-entered one.
type IntakeConsumer struct {
	consumer            *messaging.Consumer
	prescriptionService *service.PrescriptionService
	logger              *logger.Logger
}

// NewIntakeConsumer creates a new intake consumer
func NewIntakeConsumer(rmq *messaging.RabbitMQ, prescriptionService *service.PrescriptionService, log *logger.Logger) (*IntakeConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "dispense-service.clinical-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeClinicalEvents, "clinical.prescription.#"); err != nil {
		return nil, err
	}

	c := &IntakeConsumer{
		consumer:            consumer,
		prescriptionService: prescriptionService,
		logger:              log,
	}

	consumer.RegisterHandler(messaging.EventPrescriptionReceived, c.handlePrescriptionReceived)

	return c, nil
}

// Start starts consuming messages
func (c *IntakeConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *IntakeConsumer) handlePrescriptionReceived(ctx context.Context, event *messaging.Event) error {
	var data messaging.PrescriptionReceivedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("store_id", data.StoreID).
		Str("patient_id", data.PatientID).
		Int("items", len(data.Items)).
		Msg("received prescription transmission")

	items := make([]service.PrescriptionItemInput, 0, len(data.Items))
	for _, item := range data.Items {
		items = append(items, service.PrescriptionItemInput{
			DrugID:             item.DrugID,
			PrescribedQty:      item.PrescribedQty,
			Unit:               item.Unit,
			DosageInstructions: item.DosageInstructions,
		})
	}

	// The transmission carries its own store scope; there is no request to
	// take one from.
	ctx = store.WithStoreID(ctx, data.StoreID)

	_, err := c.prescriptionService.Create(ctx, &service.CreatePrescriptionInput{
		PatientID:           data.PatientID,
		PrescriberID:        data.PrescriberID,
		TotalRefillsAllowed: data.TotalRefillsAllowed,
		Items:               items,
	})
	return err
}
