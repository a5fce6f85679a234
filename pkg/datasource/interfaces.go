// Package datasource provides schema discovery and query execution against
// the target PostgreSQL database.
package datasource

import (
	"context"
)

// TableMetadata describes a discovered table.
type TableMetadata struct {
	SchemaName string
	TableName  string
	RowCount   int64
}

// ColumnMetadata describes a discovered column.
type ColumnMetadata struct {
	ColumnName      string
	DataType        string
	IsNullable      bool
	IsPrimaryKey    bool
	IsUnique        bool
	OrdinalPosition int
	DefaultValue    *string
}

// ForeignKeyMetadata describes a discovered foreign key relationship.
type ForeignKeyMetadata struct {
	ConstraintName string
	SourceSchema   string
	SourceTable    string
	SourceColumn   string
	TargetSchema   string
	TargetTable    string
	TargetColumn   string
}

// IndexMetadata describes a discovered index.
type IndexMetadata struct {
	SchemaName string
	TableName  string
	IndexName  string
	IsUnique   bool
	Columns    []string
}

// ColumnInfo describes a result set column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryExecutionResult holds the outcome of a query execution.
type QueryExecutionResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// Introspector discovers the structure of the target database.
type Introspector interface {
	// DiscoverTables returns all user tables (excludes system schemas).
	DiscoverTables(ctx context.Context) ([]TableMetadata, error)

	// DiscoverColumns returns columns for a specific table.
	DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]ColumnMetadata, error)

	// DiscoverForeignKeys returns all foreign key relationships.
	DiscoverForeignKeys(ctx context.Context) ([]ForeignKeyMetadata, error)

	// DiscoverIndexes returns all indexes on user tables.
	DiscoverIndexes(ctx context.Context) ([]IndexMetadata, error)
}

// Executor runs read queries against the target database.
type Executor interface {
	// ExecuteQuery runs a SQL query, capping the result at limit rows when
	// limit is positive.
	ExecuteQuery(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error)

	// ValidateQuery checks if a SQL query is syntactically valid without
	// executing it.
	ValidateQuery(ctx context.Context, sqlQuery string) error
}

// Ensure implementations satisfy the interfaces at compile time.
var (
	_ Introspector = (*SchemaDiscoverer)(nil)
	_ Executor     = (*QueryExecutor)(nil)
)
