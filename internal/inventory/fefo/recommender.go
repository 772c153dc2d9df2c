// Package fefo implements first-expiry-first-out batch selection. It is
// pure decision logic over a batch snapshot; it never touches storage, so
// callers may run it speculatively any number of times. Only the dispense
// commit's re-run against locked rows is authoritative.
package fefo

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/repository"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
)

// Expiry risk levels, from the batch nearest expiry in a recommendation.
const (
	RiskExpired  = "EXPIRED"
	RiskCritical = "CRITICAL"
	RiskWarning  = "WARNING"
	RiskCaution  = "CAUTION"
	RiskSafe     = "SAFE"
)

// Allocation is one batch's share of a covering set.
type Allocation struct {
	BatchID     string `json:"batch_id"`
	BatchNumber string `json:"batch_number"`
	Quantity    int64  `json:"quantity"`
}

// Alternative is a non-selected batch annotated so an operator can make an
// informed deviation.
type Alternative struct {
	BatchID                  string    `json:"batch_id"`
	BatchNumber              string    `json:"batch_number"`
	QuantityInStock          int64     `json:"quantity_in_stock"`
	ExpiryDate               time.Time `json:"expiry_date"`
	DaysToExpiry             int       `json:"days_to_expiry"`
	DaysLaterThanRecommended int       `json:"days_later_than_recommended"`
}

// Risk describes how close the recommended batch is to expiry.
type Risk struct {
	Level        string          `json:"level"`
	DaysToExpiry int             `json:"days_to_expiry"`
	ValueAtRisk  decimal.Decimal `json:"value_at_risk"`
}

// Recommendation is the result of a FEFO walk.
type Recommendation struct {
	RecommendedBatchID string        `json:"recommended_batch_id"`
	Covering           []Allocation  `json:"covering"`
	Alternatives       []Alternative `json:"alternatives"`
	ExpiryRisk         Risk          `json:"expiry_risk"`
	TotalAvailable     int64         `json:"total_available"`
}

// InsufficientStockError reports that the ACTIVE ledger cannot cover the
// request. Never a partial recommendation.
type InsufficientStockError struct {
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// Unwrap lets errors.Is match the insufficient-stock sentinel.
func (e *InsufficientStockError) Unwrap() error {
	return errors.ErrInsufficientStock
}

// eligible filters to ACTIVE in-stock batches and sorts them FEFO: expiry
// ascending, received date ascending, then input order for determinism.
// The input slice is not modified.
func eligible(batches []*repository.InventoryBatch) []*repository.InventoryBatch {
	out := make([]*repository.InventoryBatch, 0, len(batches))
	index := make(map[*repository.InventoryBatch]int, len(batches))
	for i, b := range batches {
		if b.Status != repository.BatchStatusActive || b.QuantityInStock <= 0 {
			continue
		}
		index[b] = i
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		if !out[i].ReceivedDate.Equal(out[j].ReceivedDate) {
			return out[i].ReceivedDate.Before(out[j].ReceivedDate)
		}
		return index[out[i]] < index[out[j]]
	})

	return out
}

// Recommend walks the batch snapshot in FEFO order, accumulating stock until
// the request is covered. Quarantined, recalled, reserved and exhausted
// batches are never selected.
func Recommend(batches []*repository.InventoryBatch, requestedBaseQty int64, now time.Time) (*Recommendation, error) {
	if requestedBaseQty <= 0 {
		return nil, errors.BadRequest("requested quantity must be positive")
	}

	sorted := eligible(batches)

	var total int64
	for _, b := range sorted {
		total += b.QuantityInStock
	}
	if total < requestedBaseQty {
		return nil, &InsufficientStockError{Requested: requestedBaseQty, Available: total}
	}

	covering := make([]Allocation, 0, 1)
	remaining := requestedBaseQty
	used := 0
	for _, b := range sorted {
		take := b.QuantityInStock
		if take > remaining {
			take = remaining
		}
		covering = append(covering, Allocation{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    take,
		})
		remaining -= take
		used++
		if remaining == 0 {
			break
		}
	}

	recommended := sorted[0]

	alternatives := make([]Alternative, 0, len(sorted)-used)
	for _, b := range sorted[used:] {
		alternatives = append(alternatives, Alternative{
			BatchID:                  b.ID,
			BatchNumber:              b.BatchNumber,
			QuantityInStock:          b.QuantityInStock,
			ExpiryDate:               b.ExpiryDate,
			DaysToExpiry:             daysUntil(b.ExpiryDate, now),
			DaysLaterThanRecommended: daysBetween(recommended.ExpiryDate, b.ExpiryDate),
		})
	}

	return &Recommendation{
		RecommendedBatchID: recommended.ID,
		Covering:           covering,
		Alternatives:       alternatives,
		ExpiryRisk:         ExpiryRisk(recommended, now),
		TotalAvailable:     total,
	}, nil
}

// AllocateFrom computes a covering set honoring a manual batch preference:
// the preferred batch is drained first, then the walk continues in FEFO
// order over the rest. Used at commit time when the operator selected a
// non-recommended batch.
func AllocateFrom(batches []*repository.InventoryBatch, preferredBatchID string, requestedBaseQty int64) ([]Allocation, error) {
	if requestedBaseQty <= 0 {
		return nil, errors.BadRequest("requested quantity must be positive")
	}

	sorted := eligible(batches)

	var preferred *repository.InventoryBatch
	rest := make([]*repository.InventoryBatch, 0, len(sorted))
	for _, b := range sorted {
		if b.ID == preferredBatchID {
			preferred = b
			continue
		}
		rest = append(rest, b)
	}
	if preferred == nil {
		return nil, errors.NotFound("preferred batch")
	}

	ordered := append([]*repository.InventoryBatch{preferred}, rest...)

	var total int64
	for _, b := range ordered {
		total += b.QuantityInStock
	}
	if total < requestedBaseQty {
		return nil, &InsufficientStockError{Requested: requestedBaseQty, Available: total}
	}

	covering := make([]Allocation, 0, 1)
	remaining := requestedBaseQty
	for _, b := range ordered {
		take := b.QuantityInStock
		if take > remaining {
			take = remaining
		}
		covering = append(covering, Allocation{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    take,
		})
		remaining -= take
		if remaining == 0 {
			break
		}
	}

	return covering, nil
}

// ExpiryRisk buckets a batch by days to expiry and prices the stock at risk.
func ExpiryRisk(b *repository.InventoryBatch, now time.Time) Risk {
	days := daysUntil(b.ExpiryDate, now)

	level := RiskSafe
	switch {
	case days < 0:
		level = RiskExpired
	case days <= 30:
		level = RiskCritical
	case days <= 60:
		level = RiskWarning
	case days <= 90:
		level = RiskCaution
	}

	return Risk{
		Level:        level,
		DaysToExpiry: days,
		ValueAtRisk:  b.MRP.Mul(decimal.NewFromInt(b.QuantityInStock)),
	}
}

func daysUntil(t, now time.Time) int {
	return int(t.Sub(now).Hours() / 24)
}

func daysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}
