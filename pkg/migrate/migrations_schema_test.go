package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sokonihq/sokoni-backend/pkg/migrate"
)

func TestSchemaMigrationCoversCoreTables(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE orders",
		"CREATE TABLE order_items",
		"CREATE TABLE agent_earnings",
		"CREATE TABLE escrow_transactions",
		"CREATE TABLE wallets",
		"CREATE TABLE wallet_transactions",
		"order_id uuid NOT NULL UNIQUE REFERENCES orders (id)",
		"total_amount numeric(12,2) NOT NULL",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
