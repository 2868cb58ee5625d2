package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func TestInventoryMigrationContainsLedgerConstraints(t *testing.T) {
	content := readMigration(t, "*_create_catalog.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_items",
		"CHECK (qty_on_hand >= 0)",
		"CHECK (qty_reserved >= 0)",
		"CHECK (qty_reserved <= qty_on_hand)",
		"UNIQUE (variant_id, warehouse_id)",
		"DROP TABLE IF EXISTS inventory_items",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrderMigrationContainsIdempotencyIndex(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"uniq_order_idempotency_per_user",
		"WHERE idempotency_key IS NOT NULL",
		"CREATE TABLE IF NOT EXISTS inventory_allocations",
		"CREATE TABLE IF NOT EXISTS payment_intents",
		"UNIQUE (order_id, kind)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCouponMigrationGuardsRedemptions(t *testing.T) {
	content := readMigration(t, "*_create_promotions.sql")

	checks := []string{
		"UNIQUE (coupon_id, order_id)",
		"CHECK (times_redeemed >= 0)",
		"free_shipping_methods TEXT[]",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matches %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
