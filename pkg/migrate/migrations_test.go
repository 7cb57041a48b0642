package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/artvault-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks ...string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLedgerMigrationEnforcesDedupAndImmutability(t *testing.T) {
	content := readMigration(t, "create_ledger_entries")
	assertContains(t, content,
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"amount numeric(18,2) NOT NULL CHECK (amount <> 0)",
		"currency text NOT NULL CHECK (currency IN ('CREDITS', 'USD'))",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_dedup_key",
		"BEFORE UPDATE OR DELETE ON ledger_entries",
		"DROP TABLE IF EXISTS ledger_entries",
	)
}

func TestPerkMigrationHasPendingPartialIndex(t *testing.T) {
	content := readMigration(t, "create_perk_redemptions")
	assertContains(t, content,
		"ON perk_redemptions (collector_identifier, perk_type, product_key)",
		"WHERE redemption_status = 'pending'",
	)
}

func TestPayoutMigrationStatusCheck(t *testing.T) {
	content := readMigration(t, "create_vendor_payouts")
	assertContains(t, content,
		"status IN ('pending', 'processing', 'completed', 'failed')",
		"payment_method IN ('paypal', 'stripe', 'manual')",
		"amount numeric(18,2) NOT NULL CHECK (amount > 0)",
	)
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Notes!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_payout_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationSameSecondStaysOrdered(t *testing.T) {
	dir := t.TempDir()
	first, err := migrate.CreateSQLMigration(dir, "add_payout_notes")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := migrate.CreateSQLMigration(dir, "add_payout_index")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if filepath.Base(first)[:14] >= filepath.Base(second)[:14] {
		t.Fatalf("versions not increasing: %s then %s", first, second)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("back-to-back migrations should validate: %v", err)
	}
}

func TestCreateSQLMigrationFollowsFutureVersion(t *testing.T) {
	dir := t.TempDir()
	future := filepath.Join(dir, "29991231235959_seed.sql")
	if err := os.WriteFile(future, []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	path, err := migrate.CreateSQLMigration(dir, "after_seed")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "30000101000000_") {
		t.Fatalf("expected version after seed, got %s", path)
	}
}
