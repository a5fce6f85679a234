//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTargetDB_Connection(t *testing.T) {
	targetDB := GetTargetDB(t)

	ctx := context.Background()

	// Verify the seeded schema is in place
	var tableCount int
	err := targetDB.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'").
		Scan(&tableCount)
	if err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}

	if tableCount != 3 {
		t.Errorf("expected 3 tables in target schema, got %d", tableCount)
	}
}

func TestTargetDB_TableData(t *testing.T) {
	targetDB := GetTargetDB(t)

	ctx := context.Background()

	// Verify seeded tables have expected row counts
	tests := []struct {
		table    string
		expected int
	}{
		{"customers", 3},
		{"orders", 5},
		{"order_items", 7},
	}

	for _, tt := range tests {
		var count int
		err := targetDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+tt.table).Scan(&count)
		if err != nil {
			t.Errorf("failed to count %s: %v", tt.table, err)
			continue
		}
		if count != tt.expected {
			t.Errorf("%s: expected %d rows, got %d", tt.table, tt.expected, count)
		}
	}
}

func TestAppDB_MigrationsApplied(t *testing.T) {
	appDB := GetAppDB(t)

	ctx := context.Background()

	for _, table := range []string{"query_history", "query_examples"} {
		var exists bool
		err := appDB.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to check for table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("expected migration-created table %s to exist", table)
		}
	}
}
