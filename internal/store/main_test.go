package store_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/JonMunkholm/roster/internal/store"
	"github.com/JonMunkholm/roster/testutil"
)

// TestMain migrates the integration database once for the whole package.
// Without TEST_DATABASE_URL only the in-memory tests run.
func TestMain(m *testing.M) {
	dsn := os.Getenv(testutil.DSNEnv)
	if dsn == "" {
		os.Exit(m.Run())
	}

	db := testutil.MustOpenSQLDB(dsn)
	if _, err := store.MigrateDB(context.Background(), db); err != nil {
		log.Fatalf("TestMain: run migrations: %v", err)
	}
	db.Close()

	os.Exit(m.Run())
}
