package datasource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SchemaDiscoverer provides PostgreSQL schema discovery.
type SchemaDiscoverer struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a PostgreSQL schema discoverer on an existing pool.
func NewSchemaDiscoverer(pool *pgxpool.Pool, logger *zap.Logger) *SchemaDiscoverer {
	return &SchemaDiscoverer{
		pool:   pool,
		logger: logger.Named("introspect"),
	}
}

// DiscoverTables returns all user tables (excludes system schemas).
// Row counts come from planner statistics (pg_class.reltuples), not COUNT(*),
// so they are estimates that cost nothing to read.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]TableMetadata, error) {
	const query = `
		SELECT
			t.table_schema,
			t.table_name,
			COALESCE(c.reltuples::bigint, 0) as row_count
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY t.table_schema, t.table_name
	`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []TableMetadata
	for rows.Next() {
		var t TableMetadata
		if err := rows.Scan(&t.SchemaName, &t.TableName, &t.RowCount); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// DiscoverColumns returns columns for a specific table.
// Uses pg_index for primary key and unique detection, which correctly identifies
// primary keys even when created as unique indexes (common with ORMs).
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]ColumnMetadata, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' as is_nullable,
			COALESCE(pk.is_pk, false) as is_primary_key,
			COALESCE(uq.is_unique, false) as is_unique,
			c.ordinal_position,
			c.column_default
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true
			  AND n.nspname = $1
			  AND t.relname = $2
			  AND array_length(ix.indkey, 1) = 1
		) pk ON c.column_name = pk.column_name
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_unique
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisunique = true
			  AND ix.indisprimary = false
			  AND n.nspname = $1
			  AND t.relname = $2
			  AND array_length(ix.indkey, 1) = 1
		) uq ON c.column_name = uq.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := d.pool.Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []ColumnMetadata
	for rows.Next() {
		var c ColumnMetadata
		if err := rows.Scan(&c.ColumnName, &c.DataType, &c.IsNullable, &c.IsPrimaryKey, &c.IsUnique, &c.OrdinalPosition, &c.DefaultValue); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// DiscoverForeignKeys returns all foreign key relationships.
func (d *SchemaDiscoverer) DiscoverForeignKeys(ctx context.Context) ([]ForeignKeyMetadata, error) {
	const query = `
		SELECT
			tc.constraint_name,
			kcu.table_schema as source_schema,
			kcu.table_name as source_table,
			kcu.column_name as source_column,
			ccu.table_schema as target_schema,
			ccu.table_name as target_table,
			ccu.column_name as target_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
	`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []ForeignKeyMetadata
	for rows.Next() {
		var fk ForeignKeyMetadata
		if err := rows.Scan(&fk.ConstraintName, &fk.SourceSchema, &fk.SourceTable, &fk.SourceColumn,
			&fk.TargetSchema, &fk.TargetTable, &fk.TargetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return fks, nil
}

// DiscoverIndexes returns all indexes on user tables with their column lists
// in index order.
func (d *SchemaDiscoverer) DiscoverIndexes(ctx context.Context) ([]IndexMetadata, error) {
	const query = `
		SELECT
			n.nspname as schema_name,
			t.relname as table_name,
			i.relname as index_name,
			ix.indisunique,
			a.attname as column_name,
			k.ordinality
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ordinality) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY n.nspname, t.relname, i.relname, k.ordinality
	`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	// One row per index column; fold into one entry per index.
	var indexes []IndexMetadata
	byName := make(map[string]int)
	for rows.Next() {
		var (
			schemaName, tableName, indexName, columnName string
			isUnique                                     bool
			ordinality                                   int64
		)
		if err := rows.Scan(&schemaName, &tableName, &indexName, &isUnique, &columnName, &ordinality); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}

		key := schemaName + "." + tableName + "." + indexName
		idx, ok := byName[key]
		if !ok {
			indexes = append(indexes, IndexMetadata{
				SchemaName: schemaName,
				TableName:  tableName,
				IndexName:  indexName,
				IsUnique:   isUnique,
			})
			idx = len(indexes) - 1
			byName[key] = idx
		}
		indexes[idx].Columns = append(indexes[idx].Columns, columnName)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexes: %w", err)
	}

	return indexes, nil
}
