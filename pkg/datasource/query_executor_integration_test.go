//go:build integration

package datasource

import (
	"context"
	"testing"

	"github.com/flsteven87/chatalyst-ai/pkg/testhelpers"
)

func TestQueryExecutor_ExecuteQuery(t *testing.T) {
	targetDB := testhelpers.GetTargetDB(t)
	e := NewQueryExecutor(targetDB.Pool)

	result, err := e.ExecuteQuery(context.Background(),
		"SELECT name, country FROM customers ORDER BY name", 0)
	if err != nil {
		t.Fatalf("ExecuteQuery failed: %v", err)
	}

	if result.RowCount != 3 {
		t.Errorf("expected 3 rows, got %d", result.RowCount)
	}
	if len(result.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(result.Columns))
	}
	if result.Columns[0].Name != "name" || result.Columns[1].Name != "country" {
		t.Errorf("unexpected column names: %+v", result.Columns)
	}
	if result.Rows[0]["name"] != "Alice Chen" {
		t.Errorf("expected first row Alice Chen, got %v", result.Rows[0]["name"])
	}
}

func TestQueryExecutor_ExecuteQuery_RowCap(t *testing.T) {
	targetDB := testhelpers.GetTargetDB(t)
	e := NewQueryExecutor(targetDB.Pool)

	result, err := e.ExecuteQuery(context.Background(), "SELECT id FROM order_items", 2)
	if err != nil {
		t.Fatalf("ExecuteQuery failed: %v", err)
	}

	// 7 rows seeded; the cap wraps the query in a limited subselect
	if result.RowCount != 2 {
		t.Errorf("expected row cap of 2, got %d rows", result.RowCount)
	}
}

func TestQueryExecutor_ExecuteQuery_Aggregation(t *testing.T) {
	targetDB := testhelpers.GetTargetDB(t)
	e := NewQueryExecutor(targetDB.Pool)

	result, err := e.ExecuteQuery(context.Background(),
		`SELECT c.name, COUNT(o.id) AS order_count
		 FROM customers c
		 JOIN orders o ON o.customer_id = c.id
		 GROUP BY c.name
		 ORDER BY order_count DESC, c.name`, 100)
	if err != nil {
		t.Fatalf("ExecuteQuery failed: %v", err)
	}

	if result.RowCount != 3 {
		t.Fatalf("expected 3 customers with orders, got %d", result.RowCount)
	}
	// Alice and Carla have 2 orders each; Bruno has 1
	if result.Rows[2]["name"] != "Bruno Costa" {
		t.Errorf("expected Bruno Costa last, got %v", result.Rows[2]["name"])
	}
}

func TestQueryExecutor_ExecuteQuery_UserError(t *testing.T) {
	targetDB := testhelpers.GetTargetDB(t)
	e := NewQueryExecutor(targetDB.Pool)

	_, err := e.ExecuteQuery(context.Background(), "SELECT revenue FROM customers", 10)
	if err == nil {
		t.Fatal("expected error for undefined column")
	}

	if !IsUserSQLError(err) {
		t.Errorf("expected undefined column to classify as user SQL error: %v", err)
	}
	if code := UserSQLErrorCode(err); code != "undefined_column" {
		t.Errorf("expected code undefined_column, got %q", code)
	}
}

func TestQueryExecutor_ValidateQuery(t *testing.T) {
	targetDB := testhelpers.GetTargetDB(t)
	e := NewQueryExecutor(targetDB.Pool)

	if err := e.ValidateQuery(context.Background(), "SELECT id FROM orders"); err != nil {
		t.Errorf("expected valid query to pass: %v", err)
	}

	if err := e.ValidateQuery(context.Background(), "SELECT FROM WHERE"); err == nil {
		t.Error("expected invalid query to fail validation")
	}
}
