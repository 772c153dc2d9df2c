package testutil

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// pharmacySchema is the full dispense-service schema. The named CHECK
// constraints matter: pkg/database maps them to typed errors, so tests
// exercise the same backstop production relies on.
const pharmacySchema = `
	CREATE TABLE IF NOT EXISTS drugs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		store_id UUID NOT NULL,
		name VARCHAR(255) NOT NULL,
		generic_name VARCHAR(255),
		schedule VARCHAR(10) NOT NULL DEFAULT 'OTC',
		base_unit VARCHAR(50) NOT NULL,
		display_unit VARCHAR(50) NOT NULL,
		hsn_code VARCHAR(20),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS inventory_batches (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		store_id UUID NOT NULL,
		drug_id UUID NOT NULL REFERENCES drugs(id),
		batch_number VARCHAR(100) NOT NULL,
		barcode VARCHAR(100),
		quantity_in_stock BIGINT NOT NULL DEFAULT 0,
		expiry_date TIMESTAMPTZ NOT NULL,
		received_date TIMESTAMPTZ NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
		mrp NUMERIC(12,2) NOT NULL DEFAULT 0,
		received_unit VARCHAR(50) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT quantity_in_stock_non_negative CHECK (quantity_in_stock >= 0),
		CONSTRAINT inventory_batches_drug_batch_number_key UNIQUE (drug_id, batch_number)
	);

	CREATE TABLE IF NOT EXISTS stock_movements (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		store_id UUID NOT NULL,
		batch_id UUID NOT NULL REFERENCES inventory_batches(id),
		drug_id UUID NOT NULL REFERENCES drugs(id),
		movement_type VARCHAR(20) NOT NULL,
		quantity BIGINT NOT NULL,
		reference_type VARCHAR(50),
		reference_id UUID,
		performed_by UUID NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS conversion_rules (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		drug_id UUID NOT NULL REFERENCES drugs(id),
		from_unit VARCHAR(50) NOT NULL,
		to_unit VARCHAR(50) NOT NULL,
		factor NUMERIC(12,4) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT conversion_rule_drug_units_key UNIQUE (drug_id, from_unit, to_unit)
	);

	CREATE TABLE IF NOT EXISTS prescriptions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		store_id UUID NOT NULL,
		patient_id UUID NOT NULL,
		prescriber_id UUID NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
		total_refills_allowed INT NOT NULL DEFAULT 0,
		version INT NOT NULL DEFAULT 1,
		hold_reason TEXT,
		hold_until TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT prescription_status_valid CHECK (
			status IN ('DRAFT','VERIFIED','ACTIVE','ON_HOLD','COMPLETED','CANCELLED')
		)
	);

	CREATE TABLE IF NOT EXISTS prescription_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		prescription_id UUID NOT NULL REFERENCES prescriptions(id),
		drug_id UUID NOT NULL REFERENCES drugs(id),
		prescribed_qty BIGINT NOT NULL,
		unit VARCHAR(50) NOT NULL,
		dosage_instructions TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS refills (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		prescription_id UUID NOT NULL REFERENCES prescriptions(id),
		refill_number INT NOT NULL,
		prescribed_qty BIGINT NOT NULL,
		dispensed_qty BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT dispensed_within_prescribed CHECK (dispensed_qty <= prescribed_qty),
		CONSTRAINT refills_prescription_refill_number_key UNIQUE (prescription_id, refill_number)
	);

	CREATE TABLE IF NOT EXISTS dispense_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		store_id UUID NOT NULL,
		refill_id UUID NOT NULL REFERENCES refills(id),
		prescription_id UUID NOT NULL REFERENCES prescriptions(id),
		prescription_version INT NOT NULL,
		drug_id UUID NOT NULL REFERENCES drugs(id),
		status VARCHAR(20) NOT NULL DEFAULT 'CREATED',
		quantity_requested NUMERIC(12,3),
		requested_unit VARCHAR(50),
		quantity_dispensed_base_units BIGINT,
		selected_batch_id UUID,
		scanned_barcode VARCHAR(100),
		scan_override BOOLEAN NOT NULL DEFAULT FALSE,
		created_by UUID NOT NULL,
		scanned_by UUID,
		released_by UUID,
		completed_by UUID,
		cancel_reason TEXT,
		scanned_at TIMESTAMPTZ,
		released_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT dispense_status_valid CHECK (
			status IN ('CREATED','SCANNED','RELEASED','COMPLETED','CANCELLED')
		)
	);

	CREATE TABLE IF NOT EXISTS dispense_lines (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		dispense_event_id UUID NOT NULL REFERENCES dispense_events(id),
		batch_id UUID NOT NULL REFERENCES inventory_batches(id),
		batch_number VARCHAR(100) NOT NULL,
		quantity BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS fefo_deviations (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		store_id UUID NOT NULL,
		dispense_event_id UUID NOT NULL REFERENCES dispense_events(id),
		drug_id UUID NOT NULL REFERENCES drugs(id),
		kind VARCHAR(20) NOT NULL,
		recommended_batch_id UUID,
		actual_batch_id UUID,
		deviation_days INT NOT NULL DEFAULT 0,
		actor_id UUID NOT NULL,
		reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// CreatePharmacySchema creates all dispense-service tables
func CreatePharmacySchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, pharmacySchema); err != nil {
		return fmt.Errorf("failed to create pharmacy schema: %w", err)
	}
	return nil
}

// TruncateAll empties all tables between tests
func TruncateAll(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE fefo_deviations, dispense_lines, dispense_events, refills,
			prescription_items, prescriptions, conversion_rules,
			stock_movements, inventory_batches, drugs CASCADE
	`)
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
