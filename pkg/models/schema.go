package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaTable describes one table discovered from the live database.
type SchemaTable struct {
	Schema   string         `json:"schema"`
	Name     string         `json:"name"`
	Columns  []SchemaColumn `json:"columns"`
	RowCount *int64         `json:"row_count,omitempty"`
}

// SchemaColumn describes one column of a discovered table.
type SchemaColumn struct {
	Name            string  `json:"name"`
	DataType        string  `json:"data_type"`
	IsNullable      bool    `json:"is_nullable"`
	IsPrimaryKey    bool    `json:"is_primary_key"`
	IsUnique        bool    `json:"is_unique"`
	OrdinalPosition int     `json:"ordinal_position"`
	DefaultValue    *string `json:"default_value,omitempty"`
}

// ForeignKeyEdge is a declared foreign-key relationship between two columns.
type ForeignKeyEdge struct {
	ConstraintName string `json:"constraint_name"`
	SourceTable    string `json:"source_table"`
	SourceColumn   string `json:"source_column"`
	TargetTable    string `json:"target_table"`
	TargetColumn   string `json:"target_column"`
}

// SchemaIndex describes an index on a discovered table.
type SchemaIndex struct {
	Name     string   `json:"name"`
	Table    string   `json:"table"`
	Columns  []string `json:"columns"`
	IsUnique bool     `json:"is_unique"`
}

// SchemaSnapshot is an immutable point-in-time view of the database structure.
// It is replaced wholesale on refresh, never mutated; all readers share one
// instance. Lookup maps are built once at construction, so reads are lock-free.
type SchemaSnapshot struct {
	Tables      []SchemaTable
	ForeignKeys []ForeignKeyEdge
	Indexes     []SchemaIndex
	Fingerprint string
	RefreshedAt time.Time

	tablesByName map[string]*SchemaTable
	columnSet    map[string]struct{} // "table.column", lowercased
	edgeSet      map[string]struct{} // "src.col>dst.col", lowercased
}

// NewSchemaSnapshot builds a snapshot from discovered metadata. Foreign-key
// edges that reference a table or column absent from tables violate the
// snapshot invariant and are dropped; they are returned so the caller can log
// them. Tables are sorted by name for a stable fingerprint.
func NewSchemaSnapshot(tables []SchemaTable, fks []ForeignKeyEdge, indexes []SchemaIndex, refreshedAt time.Time) (*SchemaSnapshot, []ForeignKeyEdge) {
	sorted := make([]SchemaTable, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	s := &SchemaSnapshot{
		Tables:       sorted,
		Indexes:      indexes,
		RefreshedAt:  refreshedAt,
		tablesByName: make(map[string]*SchemaTable, len(sorted)),
		columnSet:    make(map[string]struct{}),
		edgeSet:      make(map[string]struct{}),
	}

	for i := range s.Tables {
		t := &s.Tables[i]
		s.tablesByName[strings.ToLower(t.Name)] = t
		for _, c := range t.Columns {
			s.columnSet[columnKey(t.Name, c.Name)] = struct{}{}
		}
	}

	var dropped []ForeignKeyEdge
	for _, fk := range fks {
		if !s.HasColumn(fk.SourceTable, fk.SourceColumn) || !s.HasColumn(fk.TargetTable, fk.TargetColumn) {
			dropped = append(dropped, fk)
			continue
		}
		s.ForeignKeys = append(s.ForeignKeys, fk)
		s.edgeSet[edgeKey(fk.SourceTable, fk.SourceColumn, fk.TargetTable, fk.TargetColumn)] = struct{}{}
	}

	s.Fingerprint = s.computeFingerprint()
	return s, dropped
}

// Table returns the table with the given name (case-insensitive).
func (s *SchemaSnapshot) Table(name string) (*SchemaTable, bool) {
	t, ok := s.tablesByName[strings.ToLower(name)]
	return t, ok
}

// HasTable reports whether a table with the given name exists.
func (s *SchemaSnapshot) HasTable(name string) bool {
	_, ok := s.tablesByName[strings.ToLower(name)]
	return ok
}

// HasColumn reports whether table.column exists (case-insensitive).
func (s *SchemaSnapshot) HasColumn(table, column string) bool {
	_, ok := s.columnSet[columnKey(table, column)]
	return ok
}

// HasForeignKey reports whether a declared FK edge connects the two columns,
// in either direction.
func (s *SchemaSnapshot) HasForeignKey(tableA, columnA, tableB, columnB string) bool {
	if _, ok := s.edgeSet[edgeKey(tableA, columnA, tableB, columnB)]; ok {
		return true
	}
	_, ok := s.edgeSet[edgeKey(tableB, columnB, tableA, columnA)]
	return ok
}

// TableNames returns all table names in sorted order.
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// ColumnNames returns the column names of a table, or nil if the table is
// unknown.
func (s *SchemaSnapshot) ColumnNames(table string) []string {
	t, ok := s.Table(table)
	if !ok {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// TableCount returns the number of tables in the snapshot.
func (s *SchemaSnapshot) TableCount() int {
	return len(s.Tables)
}

// computeFingerprint hashes the structural content of the snapshot: table and
// column names, types, primary keys, and FK edges. Row counts and timestamps
// are excluded so data growth alone does not invalidate caches.
func (s *SchemaSnapshot) computeFingerprint() string {
	h := sha256.New()
	for _, t := range s.Tables {
		fmt.Fprintf(h, "T:%s.%s\n", t.Schema, t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(h, "C:%s:%s:%t:%t\n", c.Name, c.DataType, c.IsNullable, c.IsPrimaryKey)
		}
	}
	edges := make([]string, 0, len(s.ForeignKeys))
	for _, fk := range s.ForeignKeys {
		edges = append(edges, edgeKey(fk.SourceTable, fk.SourceColumn, fk.TargetTable, fk.TargetColumn))
	}
	sort.Strings(edges)
	for _, e := range edges {
		fmt.Fprintf(h, "F:%s\n", e)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func columnKey(table, column string) string {
	return strings.ToLower(table) + "." + strings.ToLower(column)
}

func edgeKey(srcTable, srcCol, dstTable, dstCol string) string {
	return columnKey(srcTable, srcCol) + ">" + columnKey(dstTable, dstCol)
}
