package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

func summaryTestSnapshot(t *testing.T) *models.SchemaSnapshot {
	t.Helper()

	tables := []models.SchemaTable{
		{
			Schema: "public", Name: "customers",
			Columns: []models.SchemaColumn{
				{Name: "id", DataType: "uuid", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "email", DataType: "character varying", OrdinalPosition: 2},
				{Name: "created_at", DataType: "timestamp with time zone", OrdinalPosition: 3},
			},
		},
		{
			Schema: "public", Name: "orders",
			Columns: []models.SchemaColumn{
				{Name: "id", DataType: "uuid", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "customer_id", DataType: "uuid", OrdinalPosition: 2},
				{Name: "total", DataType: "numeric", OrdinalPosition: 3},
			},
		},
		{
			Schema: "public", Name: "audit_events",
			Columns: []models.SchemaColumn{
				{Name: "id", DataType: "bigint", IsPrimaryKey: true, OrdinalPosition: 1},
				{Name: "payload", DataType: "jsonb", OrdinalPosition: 2},
			},
		},
	}
	fks := []models.ForeignKeyEdge{
		{
			ConstraintName: "orders_customer_id_fkey",
			SourceTable:    "orders", SourceColumn: "customer_id",
			TargetTable: "customers", TargetColumn: "id",
		},
	}
	indexes := []models.SchemaIndex{
		{Name: "customers_email_idx", Table: "customers", Columns: []string{"email"}, IsUnique: true},
	}

	snap, dropped := models.NewSchemaSnapshot(tables, fks, indexes, time.Now())
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped edges: %v", dropped)
	}
	return snap
}

func TestSummarize_RendersDDL(t *testing.T) {
	snap := summaryTestSnapshot(t)

	out := Summarize(snap, "how many orders per customer", nil, 0)

	for _, want := range []string{
		"CREATE TABLE customers (",
		"CREATE TABLE orders (",
		"id UUID PRIMARY KEY",
		"customer_id UUID REFERENCES customers(id)",
		"created_at TIMESTAMPTZ",
		"email VARCHAR",
		"index customers_email_idx on (email)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestSummarize_BudgetElidesIrrelevantTables(t *testing.T) {
	snap := summaryTestSnapshot(t)

	full := Summarize(snap, "", nil, 0)
	out := Summarize(snap, "total orders per customer", nil, len(full)-10)

	if !strings.Contains(out, "CREATE TABLE orders") {
		t.Errorf("expected orders to survive the budget cut\n%s", out)
	}
	if !strings.Contains(out, "CREATE TABLE customers") {
		t.Errorf("expected customers to survive the budget cut\n%s", out)
	}
	if strings.Contains(out, "CREATE TABLE audit_events") {
		t.Errorf("expected audit_events to be elided\n%s", out)
	}
	if !strings.Contains(out, "tables omitted") {
		t.Errorf("expected an omission note\n%s", out)
	}
}

func TestSummarize_SingularPluralFolding(t *testing.T) {
	snap := summaryTestSnapshot(t)

	// "customer" (singular) must still rank the customers table first.
	scores := scoreTables(snap, "which customer spent the most", nil)
	if scores["customers"] <= scores["audit_events"] {
		t.Errorf("expected customers to outrank audit_events: %v", scores)
	}
}

func TestSummarize_ExampleSQLInfluencesRanking(t *testing.T) {
	snap := summaryTestSnapshot(t)

	examples := []models.RetrievedExample{
		{Question: "recent audit trail", SQL: "SELECT payload FROM audit_events ORDER BY id DESC"},
	}
	scores := scoreTables(snap, "show me the trail", examples)
	if scores["audit_events"] <= 0 {
		t.Errorf("expected example SQL to lift audit_events score: %v", scores)
	}
}

func TestSummarize_EmptySnapshot(t *testing.T) {
	if out := Summarize(nil, "anything", nil, 100); out != "" {
		t.Errorf("expected empty summary for nil snapshot, got %q", out)
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"character varying", "VARCHAR"},
		{"timestamp with time zone", "TIMESTAMPTZ"},
		{"timestamp without time zone", "TIMESTAMP"},
		{"double precision", "FLOAT8"},
		{"integer", "INT"},
		{"uuid", "UUID"},
		{"jsonb", "JSONB"},
		{"numeric", "NUMERIC"},
	}

	for _, tt := range tests {
		if got := NormalizeType(tt.in); got != tt.want {
			t.Errorf("NormalizeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
