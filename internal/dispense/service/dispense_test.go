package service_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/domain"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/events"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/service"
	invrepo "github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/repository"
	invservice "github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/service"
	rxrepo "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/repository"
	rxservice "github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/actor"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/messaging"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/store"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	s, err := testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to start integration suite: %v", err)
	}
	suite = s

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

type env struct {
	ctx              context.Context
	fixtures         *testutil.FixtureFactory
	pub              *testutil.MockPublisher
	svc              *service.DispenseService
	rxsvc            *rxservice.PrescriptionService
	batchRepo        *invrepo.BatchRepository
	conversionRepo   *invrepo.ConversionRepository
	refillRepo       *rxrepo.RefillRepository
	prescriptionRepo *rxrepo.PrescriptionRepository
	deviationRepo    *repository.DeviationRepository
	dispenseRepo     *repository.DispenseRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	fixtures := testutil.NewFixtureFactory()
	pub := testutil.NewMockPublisher()

	dispenseRepo := repository.NewDispenseRepository(suite.DB)
	deviationRepo := repository.NewDeviationRepository(suite.DB)
	prescriptionRepo := rxrepo.NewPrescriptionRepository(suite.DB)
	refillRepo := rxrepo.NewRefillRepository(suite.DB)
	batchRepo := invrepo.NewBatchRepository(suite.DB)
	drugRepo := invrepo.NewDrugRepository(suite.DB)
	conversionRepo := invrepo.NewConversionRepository(suite.DB)

	conversion := invservice.NewConversionService(drugRepo, conversionRepo, false, suite.Logger)
	statusEngine := rxservice.NewStatusEngine(prescriptionRepo, refillRepo, suite.Logger)
	publisher := events.NewWithSink(pub, suite.Logger)

	rxsvc := rxservice.NewPrescriptionService(suite.DB, prescriptionRepo, refillRepo, statusEngine, conversion, suite.Logger)
	svc := service.NewDispenseService(
		suite.DB, dispenseRepo, deviationRepo, prescriptionRepo, refillRepo,
		batchRepo, conversion, statusEngine, publisher, 3, suite.Logger,
	)

	reqCtx := store.WithStoreID(ctx, fixtures.StoreID)
	reqCtx = actor.WithActor(reqCtx, &actor.Actor{
		ID:       "11111111-1111-1111-1111-111111111111",
		Name:     "Test Pharmacist",
		StoreID:  fixtures.StoreID,
		RoleName: actor.RolePharmacist,
	})

	return &env{
		ctx:              reqCtx,
		fixtures:         fixtures,
		pub:              pub,
		svc:              svc,
		rxsvc:            rxsvc,
		batchRepo:        batchRepo,
		conversionRepo:   conversionRepo,
		refillRepo:       refillRepo,
		prescriptionRepo: prescriptionRepo,
		deviationRepo:    deviationRepo,
		dispenseRepo:     dispenseRepo,
	}
}

func (e *env) seedDrug(t *testing.T, f testutil.DrugFixture) {
	t.Helper()
	_, err := suite.RawDB.Exec(`
		INSERT INTO drugs (id, store_id, name, schedule, base_unit, display_unit)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, f.ID, f.StoreID, f.Name, f.Schedule, f.BaseUnit, f.DisplayUnit)
	require.NoError(t, err)
}

func (e *env) seedBatch(t *testing.T, f testutil.BatchFixture) *invrepo.InventoryBatch {
	t.Helper()
	batch := &invrepo.InventoryBatch{
		ID:              f.ID,
		StoreID:         f.StoreID,
		DrugID:          f.DrugID,
		BatchNumber:     f.BatchNumber,
		QuantityInStock: f.QuantityInStock,
		ExpiryDate:      f.ExpiryDate,
		ReceivedDate:    f.ReceivedDate,
		Status:          f.Status,
		MRP:             f.MRP,
		ReceivedUnit:    f.ReceivedUnit,
	}
	require.NoError(t, e.batchRepo.Create(e.ctx, batch))
	return batch
}

// seedPrescription creates a verified prescription with one item for the
// drug and one refill, returning the refill.
func (e *env) seedPrescription(t *testing.T, drugID string, prescribedQty, dispensedQty int64) (*rxrepo.Prescription, *rxrepo.Refill) {
	t.Helper()

	pf := e.fixtures.Prescription()
	prescription := &rxrepo.Prescription{
		ID:           pf.ID,
		StoreID:      pf.StoreID,
		PatientID:    pf.PatientID,
		PrescriberID: pf.PrescriberID,
		Status:       pf.Status,
		Version:      pf.Version,
	}
	items := []*rxrepo.PrescriptionItem{{
		DrugID:        drugID,
		PrescribedQty: prescribedQty,
		Unit:          "tablet",
	}}
	require.NoError(t, e.prescriptionRepo.CreateWithItems(e.ctx, prescription, items))

	status := "PENDING"
	if dispensedQty > 0 {
		status = "ACTIVE"
	}
	refill := &rxrepo.Refill{
		PrescriptionID: prescription.ID,
		RefillNumber:   0,
		PrescribedQty:  prescribedQty,
		DispensedQty:   dispensedQty,
		Status:         status,
	}
	require.NoError(t, e.refillRepo.Create(e.ctx, refill))

	return prescription, refill
}

// drive moves a fresh event through create, scan and release.
func (e *env) drive(t *testing.T, refillID, drugID, barcode string, qty int64, unit string) *domain.DispenseEvent {
	t.Helper()

	refill, err := e.refillRepo.GetByID(e.ctx, refillID)
	require.NoError(t, err)
	prescription, err := e.prescriptionRepo.GetByID(e.ctx, refill.PrescriptionID)
	require.NoError(t, err)

	event, err := e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refillID,
		DrugID:              drugID,
		PrescriptionVersion: prescription.Version,
	})
	require.NoError(t, err)

	event, err = e.svc.Scan(e.ctx, event.ID, &service.ScanInput{
		Barcode:  barcode,
		Quantity: decimal.NewFromInt(qty),
		Unit:     unit,
	})
	require.NoError(t, err)

	event, err = e.svc.Release(e.ctx, event.ID, true)
	require.NoError(t, err)

	return event
}

func TestDispense_HappyPathWithConversion(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	require.NoError(t, e.conversionRepo.Upsert(e.ctx, &invrepo.ConversionRule{
		DrugID:   drug.ID,
		FromUnit: "strip",
		ToUnit:   "tablet",
		Factor:   decimal.NewFromInt(10),
	}))

	batch := e.seedBatch(t, e.fixtures.Batch(drug.ID))
	_, refill := e.seedPrescription(t, drug.ID, 30, 0)

	event := e.drive(t, refill.ID, drug.ID, batch.BatchNumber, 2, "strip")

	result, err := e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, result.Event.Status)
	assert.Equal(t, int64(20), *result.Event.QuantityDispensedBaseUnits)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, batch.ID, result.Lines[0].BatchID)
	assert.Equal(t, int64(20), result.Lines[0].Quantity)

	assert.Equal(t, int64(20), result.Refill.DispensedQty)
	assert.Equal(t, "ACTIVE", result.RefillStatus)
	assert.Equal(t, "ACTIVE", result.PrescriptionStatus)

	stored, err := e.batchRepo.GetByID(e.ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(80), stored.QuantityInStock)

	e.pub.AssertEventPublished(t, messaging.EventDispenseCompleted)
	e.pub.AssertEventPublished(t, messaging.EventStockDeducted)
	e.pub.AssertEventPublished(t, messaging.EventPrescriptionStatusChanged)
}

func TestComplete_RejectsWhenRefillCannotAbsorb(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	batch := e.seedBatch(t, e.fixtures.Batch(drug.ID))
	_, refill := e.seedPrescription(t, drug.ID, 30, 25)

	event := e.drive(t, refill.ID, drug.ID, batch.BatchNumber, 10, "tablet")

	_, err := e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	// Nothing moved: the event stays RELEASED and both ledgers are untouched.
	stored, err := e.dispenseRepo.GetByID(e.ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReleased, stored.Status)

	storedRefill, err := e.refillRepo.GetByID(e.ctx, refill.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), storedRefill.DispensedQty)

	storedBatch, err := e.batchRepo.GetByID(e.ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), storedBatch.QuantityInStock)
}

func TestComplete_FEFOOverrideRecordsDeviation(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)

	earlier := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 1, 0)
		b.QuantityInStock = 30
	}))
	later := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 3, 0)
	}))
	_, refill := e.seedPrescription(t, drug.ID, 30, 0)

	event := e.drive(t, refill.ID, drug.ID, later.BatchNumber, 10, "tablet")

	result, err := e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, later.ID, result.Lines[0].BatchID)

	require.NotNil(t, result.Deviation)
	assert.Equal(t, repository.DeviationFEFOOverride, result.Deviation.Kind)
	assert.Equal(t, earlier.ID, *result.Deviation.RecommendedBatchID)
	assert.Equal(t, later.ID, *result.Deviation.ActualBatchID)
	assert.Greater(t, result.Deviation.DeviationDays, 0)

	deviations, err := e.deviationRepo.ListByDispenseEvent(e.ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, deviations, 1)

	e.pub.AssertEventPublished(t, messaging.EventDeviationRecorded)

	// The recommended batch was never touched.
	storedEarlier, err := e.batchRepo.GetByID(e.ctx, earlier.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), storedEarlier.QuantityInStock)
}

func TestComplete_SplitsAcrossBatchesAndExhausts(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)

	small := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 1, 0)
		b.QuantityInStock = 5
	}))
	big := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 3, 0)
	}))
	_, refill := e.seedPrescription(t, drug.ID, 30, 0)

	event := e.drive(t, refill.ID, drug.ID, small.BatchNumber, 20, "tablet")

	result, err := e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, small.ID, result.Lines[0].BatchID)
	assert.Equal(t, int64(5), result.Lines[0].Quantity)
	assert.Equal(t, big.ID, result.Lines[1].BatchID)
	assert.Equal(t, int64(15), result.Lines[1].Quantity)

	storedSmall, err := e.batchRepo.GetByID(e.ctx, small.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), storedSmall.QuantityInStock)
	assert.Equal(t, invrepo.BatchStatusExhausted, storedSmall.Status)

	e.pub.AssertEventPublished(t, messaging.EventBatchExhausted)
}

func TestComplete_FullyUsedRefillCompletesPrescription(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	batch := e.seedBatch(t, e.fixtures.Batch(drug.ID))
	prescription, refill := e.seedPrescription(t, drug.ID, 20, 0)

	event := e.drive(t, refill.ID, drug.ID, batch.BatchNumber, 20, "tablet")

	result, err := e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.NoError(t, err)

	assert.Equal(t, "FULLY_USED", result.RefillStatus)
	assert.Equal(t, "COMPLETED", result.PrescriptionStatus)

	stored, err := e.prescriptionRepo.GetByID(e.ctx, prescription.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", stored.Status)

	e.pub.AssertEventPublished(t, messaging.EventRefillExhausted)
	e.pub.AssertEventPublished(t, messaging.EventPrescriptionStatusChanged)
}

func TestComplete_SequentialCommitsCannotOversell(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	batch := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.QuantityInStock = 25
	}))
	_, refill := e.seedPrescription(t, drug.ID, 60, 0)

	first := e.drive(t, refill.ID, drug.ID, batch.BatchNumber, 15, "tablet")
	second := e.drive(t, refill.ID, drug.ID, batch.BatchNumber, 15, "tablet")

	_, err := e.svc.Complete(e.ctx, first.ID, &service.CompleteInput{})
	require.NoError(t, err)

	_, err = e.svc.Complete(e.ctx, second.ID, &service.CompleteInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	stored, err := e.batchRepo.GetByID(e.ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.QuantityInStock)
}

func TestComplete_StaleVersionRejected(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	batch := e.seedBatch(t, e.fixtures.Batch(drug.ID))
	prescription, refill := e.seedPrescription(t, drug.ID, 30, 0)

	event := e.drive(t, refill.ID, drug.ID, batch.BatchNumber, 10, "tablet")

	_, err := e.prescriptionRepo.BumpVersion(e.ctx, prescription.ID)
	require.NoError(t, err)

	_, err = e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
}

func TestScan_MismatchPausesAndOverrideProceeds(t *testing.T) {
	e := newEnv(t)

	drugA := e.fixtures.Drug()
	drugB := e.fixtures.Drug()
	e.seedDrug(t, drugA)
	e.seedDrug(t, drugB)

	wrongBatch := e.seedBatch(t, e.fixtures.Batch(drugB.ID))
	prescription, refill := e.seedPrescription(t, drugA.ID, 30, 0)

	event, err := e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refill.ID,
		DrugID:              drugA.ID,
		PrescriptionVersion: prescription.Version,
	})
	require.NoError(t, err)

	_, err = e.svc.Scan(e.ctx, event.ID, &service.ScanInput{
		Barcode:  wrongBatch.BatchNumber,
		Quantity: decimal.NewFromInt(10),
		Unit:     "tablet",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrScanMismatch))

	// The event is still open; a corrected or overridden scan moves it on.
	stored, err := e.dispenseRepo.GetByID(e.ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, stored.Status)

	reason := "stock transfer mislabel"
	scanned, err := e.svc.Scan(e.ctx, event.ID, &service.ScanInput{
		Barcode:        wrongBatch.BatchNumber,
		Quantity:       decimal.NewFromInt(10),
		Unit:           "tablet",
		Override:       true,
		OverrideReason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScanned, scanned.Status)
	assert.True(t, scanned.ScanOverride)

	deviations, err := e.deviationRepo.ListByDispenseEvent(e.ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, deviations, 1)
	assert.Equal(t, repository.DeviationScanOverride, deviations[0].Kind)
}

func TestScan_OverrideRequiresPharmacist(t *testing.T) {
	e := newEnv(t)

	drugA := e.fixtures.Drug()
	drugB := e.fixtures.Drug()
	e.seedDrug(t, drugA)
	e.seedDrug(t, drugB)

	wrongBatch := e.seedBatch(t, e.fixtures.Batch(drugB.ID))
	prescription, refill := e.seedPrescription(t, drugA.ID, 30, 0)

	event, err := e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refill.ID,
		DrugID:              drugA.ID,
		PrescriptionVersion: prescription.Version,
	})
	require.NoError(t, err)

	techCtx := store.WithStoreID(context.Background(), e.fixtures.StoreID)
	techCtx = actor.WithActor(techCtx, &actor.Actor{
		ID:       "22222222-2222-2222-2222-222222222222",
		Name:     "Test Technician",
		StoreID:  e.fixtures.StoreID,
		RoleName: actor.RoleTechnician,
	})

	_, err = e.svc.Scan(techCtx, event.ID, &service.ScanInput{
		Barcode:  wrongBatch.BatchNumber,
		Quantity: decimal.NewFromInt(10),
		Unit:     "tablet",
		Override: true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestScan_RejectsExpiredBatch(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	expired := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 0, -1)
	}))
	prescription, refill := e.seedPrescription(t, drug.ID, 30, 0)

	event, err := e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refill.ID,
		DrugID:              drug.ID,
		PrescriptionVersion: prescription.Version,
	})
	require.NoError(t, err)

	_, err = e.svc.Scan(e.ctx, event.ID, &service.ScanInput{
		Barcode:  expired.BatchNumber,
		Quantity: decimal.NewFromInt(10),
		Unit:     "tablet",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestCreate_RejectsFullyUsedRefill(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	prescription, refill := e.seedPrescription(t, drug.ID, 30, 30)

	_, err := e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refill.ID,
		DrugID:              drug.ID,
		PrescriptionVersion: prescription.Version,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
}

func TestCreate_StaleVersionRejected(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	prescription, refill := e.seedPrescription(t, drug.ID, 30, 0)

	viewed := prescription.Version
	_, err := e.prescriptionRepo.BumpVersion(e.ctx, prescription.ID)
	require.NoError(t, err)

	// The operator is still looking at the pre-edit dosage; no event opens
	// against it.
	_, err = e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refill.ID,
		DrugID:              drug.ID,
		PrescriptionVersion: viewed,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))

	open, err := e.dispenseRepo.ListByStore(e.ctx, e.fixtures.StoreID, "")
	require.NoError(t, err)
	assert.Len(t, open, 0)

	// Re-reading the prescription and creating against the current version
	// succeeds.
	current, err := e.prescriptionRepo.GetByID(e.ctx, prescription.ID)
	require.NoError(t, err)
	_, err = e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refill.ID,
		DrugID:              drug.ID,
		PrescriptionVersion: current.Version,
	})
	require.NoError(t, err)
}

func TestCancel_ReleasedEventNeverTouchedTheLedger(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	batch := e.seedBatch(t, e.fixtures.Batch(drug.ID))
	_, refill := e.seedPrescription(t, drug.ID, 30, 0)

	event := e.drive(t, refill.ID, drug.ID, batch.BatchNumber, 10, "tablet")

	cancelled, err := e.svc.Cancel(e.ctx, event.ID, "patient left")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	stored, err := e.batchRepo.GetByID(e.ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.QuantityInStock)

	e.pub.AssertEventPublished(t, messaging.EventDispenseCancelled)
}

func TestWorkbench_GroupsByStatus(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	batch := e.seedBatch(t, e.fixtures.Batch(drug.ID))
	prescription, refill := e.seedPrescription(t, drug.ID, 60, 0)

	_, err := e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refill.ID,
		DrugID:              drug.ID,
		PrescriptionVersion: prescription.Version,
	})
	require.NoError(t, err)

	scanned, err := e.svc.Create(e.ctx, &service.CreateDispenseInput{
		RefillID:            refill.ID,
		DrugID:              drug.ID,
		PrescriptionVersion: prescription.Version,
	})
	require.NoError(t, err)
	_, err = e.svc.Scan(e.ctx, scanned.ID, &service.ScanInput{
		Barcode:  batch.BatchNumber,
		Quantity: decimal.NewFromInt(10),
		Unit:     "tablet",
	})
	require.NoError(t, err)

	wb, err := e.svc.GetWorkbench(e.ctx)
	require.NoError(t, err)
	assert.Len(t, wb.Created, 1)
	assert.Len(t, wb.Scanned, 1)
	assert.Len(t, wb.Released, 0)
}

func TestDeviationStats_CountsOverrides(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)

	e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 1, 0)
	}))
	later := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 3, 0)
	}))
	_, refill := e.seedPrescription(t, drug.ID, 60, 0)

	event := e.drive(t, refill.ID, drug.ID, later.BatchNumber, 10, "tablet")
	_, err := e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.NoError(t, err)

	stats, err := e.svc.DeviationStats(e.ctx, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDeviations)
	assert.Equal(t, 1, stats.FEFOOverrides)
	assert.Equal(t, 1, stats.TotalDispenses)
	assert.Equal(t, float64(0), stats.AdherencePercent)
}

func TestVerify_DisplayUnitItemsDispenseInFull(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)
	require.NoError(t, e.conversionRepo.Upsert(e.ctx, &invrepo.ConversionRule{
		DrugID:   drug.ID,
		FromUnit: "strip",
		ToUnit:   "tablet",
		Factor:   decimal.NewFromInt(10),
	}))
	batch := e.seedBatch(t, e.fixtures.Batch(drug.ID))

	pf := e.fixtures.Prescription()
	created, err := e.rxsvc.Create(e.ctx, &rxservice.CreatePrescriptionInput{
		PatientID:    pf.PatientID,
		PrescriberID: pf.PrescriberID,
		Items: []rxservice.PrescriptionItemInput{{
			DrugID:        drug.ID,
			PrescribedQty: 3,
			Unit:          "strip",
		}},
	})
	require.NoError(t, err)

	detail, err := e.rxsvc.Verify(e.ctx, created.Prescription.ID)
	require.NoError(t, err)
	require.Len(t, detail.Refills, 1)

	// The refill counter is in base units: 3 strips of 10 make 30 tablets.
	refill := detail.Refills[0]
	assert.Equal(t, int64(30), refill.PrescribedQty)

	// Handing over those same 3 strips uses the refill exactly.
	event := e.drive(t, refill.ID, drug.ID, batch.BatchNumber, 3, "strip")
	result, err := e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(30), result.Refill.DispensedQty)
	assert.Equal(t, "FULLY_USED", result.RefillStatus)
	assert.Equal(t, "COMPLETED", result.PrescriptionStatus)
}

func TestComplete_SelectedBatchDrainedBeforeCommit(t *testing.T) {
	e := newEnv(t)

	drug := e.fixtures.Drug()
	e.seedDrug(t, drug)

	earlier := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 1, 0)
		b.QuantityInStock = 30
	}))
	later := e.seedBatch(t, e.fixtures.Batch(drug.ID, func(b *testutil.BatchFixture) {
		b.ExpiryDate = time.Now().AddDate(0, 3, 0)
		b.QuantityInStock = 20
	}))
	_, refill := e.seedPrescription(t, drug.ID, 30, 0)

	event := e.drive(t, refill.ID, drug.ID, later.BatchNumber, 10, "tablet")

	// The selected batch drains between release and commit.
	_, err := e.batchRepo.DecrementStock(e.ctx, later.ID, 20)
	require.NoError(t, err)

	_, err = e.svc.Complete(e.ctx, event.ID, &service.CompleteInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	assert.False(t, errors.Is(err, errors.ErrNotFound))

	// The commit rolled back whole: the event stays RELEASED and the
	// remaining batch is untouched.
	stored, err := e.dispenseRepo.GetByID(e.ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReleased, stored.Status)

	storedEarlier, err := e.batchRepo.GetByID(e.ctx, earlier.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), storedEarlier.QuantityInStock)
}
