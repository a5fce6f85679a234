// Package catalog maintains an in-memory snapshot of the target database
// schema and renders it for prompt construction.
package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/apperrors"
	"github.com/flsteven87/chatalyst-ai/pkg/datasource"
	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// Catalog discovers the target database schema and serves an immutable
// snapshot of it. The snapshot is replaced wholesale on refresh; readers
// always see either the previous or the new complete snapshot.
type Catalog struct {
	introspector datasource.Introspector
	staleAfter   time.Duration
	logger       *zap.Logger

	// refreshMu serializes refreshes so concurrent stale readers trigger
	// one introspection run, not a stampede.
	refreshMu sync.Mutex

	mu       sync.RWMutex
	snapshot *models.SchemaSnapshot
}

// NewCatalog creates a schema catalog. staleAfter controls how old a snapshot
// may get before the next Snapshot call re-discovers the schema.
func NewCatalog(introspector datasource.Introspector, staleAfter time.Duration, logger *zap.Logger) *Catalog {
	return &Catalog{
		introspector: introspector,
		staleAfter:   staleAfter,
		logger:       logger.Named("catalog"),
	}
}

// Snapshot returns the current schema snapshot, discovering it first if none
// exists yet. A stale snapshot (older than staleAfter) or forceRefresh
// triggers re-discovery. If re-discovery fails and a prior snapshot exists,
// the last good snapshot is returned and the failure is logged; with no prior
// snapshot the failure is returned as an apperrors.SchemaDiscoveryError.
func (c *Catalog) Snapshot(ctx context.Context, forceRefresh bool) (*models.SchemaSnapshot, error) {
	c.mu.RLock()
	current := c.snapshot
	c.mu.RUnlock()

	if current != nil && !forceRefresh && time.Since(current.RefreshedAt) < c.staleAfter {
		return current, nil
	}

	return c.refresh(ctx, forceRefresh)
}

// Current returns the held snapshot without triggering discovery, or nil when
// nothing has been discovered yet.
func (c *Catalog) Current() *models.SchemaSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// refresh re-discovers the schema, serialized so only one introspection runs
// at a time. Waiters that arrive during a refresh reuse its result.
func (c *Catalog) refresh(ctx context.Context, forceRefresh bool) (*models.SchemaSnapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	c.mu.RLock()
	current := c.snapshot
	c.mu.RUnlock()
	if current != nil && !forceRefresh && time.Since(current.RefreshedAt) < c.staleAfter {
		return current, nil
	}

	snapshot, err := c.discover(ctx)
	if err != nil {
		if current != nil {
			c.logger.Warn("Schema refresh failed, serving last good snapshot",
				zap.Time("last_refresh", current.RefreshedAt),
				zap.Error(err))
			return current, nil
		}
		return nil, &apperrors.SchemaDiscoveryError{Cause: err}
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	return snapshot, nil
}

// discover runs full schema introspection and builds a snapshot.
func (c *Catalog) discover(ctx context.Context) (*models.SchemaSnapshot, error) {
	start := time.Now()

	tableMeta, err := c.introspector.DiscoverTables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]models.SchemaTable, 0, len(tableMeta))
	for _, tm := range tableMeta {
		columnMeta, err := c.introspector.DiscoverColumns(ctx, tm.SchemaName, tm.TableName)
		if err != nil {
			return nil, err
		}

		columns := make([]models.SchemaColumn, 0, len(columnMeta))
		for _, cm := range columnMeta {
			columns = append(columns, models.SchemaColumn{
				Name:            cm.ColumnName,
				DataType:        cm.DataType,
				IsNullable:      cm.IsNullable,
				IsPrimaryKey:    cm.IsPrimaryKey,
				IsUnique:        cm.IsUnique,
				OrdinalPosition: cm.OrdinalPosition,
				DefaultValue:    cm.DefaultValue,
			})
		}

		rowCount := tm.RowCount
		tables = append(tables, models.SchemaTable{
			Schema:   tm.SchemaName,
			Name:     tableName(tm.SchemaName, tm.TableName),
			Columns:  columns,
			RowCount: &rowCount,
		})
	}

	fkMeta, err := c.introspector.DiscoverForeignKeys(ctx)
	if err != nil {
		return nil, err
	}
	fks := make([]models.ForeignKeyEdge, 0, len(fkMeta))
	for _, fk := range fkMeta {
		fks = append(fks, models.ForeignKeyEdge{
			ConstraintName: fk.ConstraintName,
			SourceTable:    tableName(fk.SourceSchema, fk.SourceTable),
			SourceColumn:   fk.SourceColumn,
			TargetTable:    tableName(fk.TargetSchema, fk.TargetTable),
			TargetColumn:   fk.TargetColumn,
		})
	}

	indexMeta, err := c.introspector.DiscoverIndexes(ctx)
	if err != nil {
		return nil, err
	}
	indexes := make([]models.SchemaIndex, 0, len(indexMeta))
	for _, im := range indexMeta {
		indexes = append(indexes, models.SchemaIndex{
			Name:     im.IndexName,
			Table:    tableName(im.SchemaName, im.TableName),
			Columns:  im.Columns,
			IsUnique: im.IsUnique,
		})
	}

	snapshot, dropped := models.NewSchemaSnapshot(tables, fks, indexes, time.Now())
	for _, edge := range dropped {
		c.logger.Warn("Dropping foreign key edge referencing unknown column",
			zap.String("constraint", edge.ConstraintName),
			zap.String("source", edge.SourceTable+"."+edge.SourceColumn),
			zap.String("target", edge.TargetTable+"."+edge.TargetColumn))
	}

	c.logger.Info("Schema discovered",
		zap.Int("tables", len(tables)),
		zap.Int("foreign_keys", len(snapshot.ForeignKeys)),
		zap.Int("indexes", len(indexes)),
		zap.String("fingerprint", snapshot.Fingerprint),
		zap.Duration("elapsed", time.Since(start)))

	return snapshot, nil
}

// tableName maps a schema-qualified table to the name the LLM and validator
// use: bare for public tables, schema-qualified otherwise.
func tableName(schema, table string) string {
	if schema == "" || schema == "public" {
		return table
	}
	return schema + "." + table
}
