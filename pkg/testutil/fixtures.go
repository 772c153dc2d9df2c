package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DrugFixture represents test drug data
type DrugFixture struct {
	ID          string
	StoreID     string
	Name        string
	Schedule    string
	BaseUnit    string
	DisplayUnit string
}

// BatchFixture represents test inventory batch data
type BatchFixture struct {
	ID              string
	StoreID         string
	DrugID          string
	BatchNumber     string
	QuantityInStock int64
	ExpiryDate      time.Time
	ReceivedDate    time.Time
	Status          string
	MRP             decimal.Decimal
	ReceivedUnit    string
}

// PrescriptionFixture represents test prescription data
type PrescriptionFixture struct {
	ID                  string
	StoreID             string
	PatientID           string
	PrescriberID        string
	Status              string
	TotalRefillsAllowed int
	Version             int
}

// RefillFixture represents test refill data
type RefillFixture struct {
	ID             string
	PrescriptionID string
	RefillNumber   int
	PrescribedQty  int64
	DispensedQty   int64
	Status         string
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
	StoreID  string
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{
		sequence: 0,
		StoreID:  uuid.New().String(),
	}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Drug creates a drug fixture with defaults
func (f *FixtureFactory) Drug(opts ...func(*DrugFixture)) DrugFixture {
	seq := f.nextSeq()

	drug := DrugFixture{
		ID:          uuid.New().String(),
		StoreID:     f.StoreID,
		Name:        fmt.Sprintf("Test Drug %d", seq),
		Schedule:    "OTC",
		BaseUnit:    "tablet",
		DisplayUnit: "strip",
	}

	for _, opt := range opts {
		opt(&drug)
	}
	return drug
}

// Batch creates a batch fixture with defaults: active, 100 in stock,
// expiring in six months.
func (f *FixtureFactory) Batch(drugID string, opts ...func(*BatchFixture)) BatchFixture {
	seq := f.nextSeq()

	batch := BatchFixture{
		ID:              uuid.New().String(),
		StoreID:         f.StoreID,
		DrugID:          drugID,
		BatchNumber:     fmt.Sprintf("BN-%04d", seq),
		QuantityInStock: 100,
		ExpiryDate:      time.Now().AddDate(0, 6, 0),
		ReceivedDate:    time.Now().AddDate(0, -1, 0),
		Status:          "ACTIVE",
		MRP:             decimal.NewFromFloat(50.00),
		ReceivedUnit:    "strip",
	}

	for _, opt := range opts {
		opt(&batch)
	}
	return batch
}

// Prescription creates a prescription fixture with defaults (VERIFIED, one-time)
func (f *FixtureFactory) Prescription(opts ...func(*PrescriptionFixture)) PrescriptionFixture {
	p := PrescriptionFixture{
		ID:                  uuid.New().String(),
		StoreID:             f.StoreID,
		PatientID:           uuid.New().String(),
		PrescriberID:        uuid.New().String(),
		Status:              "VERIFIED",
		TotalRefillsAllowed: 0,
		Version:             1,
	}

	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Refill creates a refill fixture with defaults (PENDING, 30 prescribed)
func (f *FixtureFactory) Refill(prescriptionID string, opts ...func(*RefillFixture)) RefillFixture {
	r := RefillFixture{
		ID:             uuid.New().String(),
		PrescriptionID: prescriptionID,
		RefillNumber:   0,
		PrescribedQty:  30,
		DispensedQty:   0,
		Status:         "PENDING",
	}

	for _, opt := range opts {
		opt(&r)
	}
	return r
}
