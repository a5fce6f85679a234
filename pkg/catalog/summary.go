package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// wordPattern splits free text and SQL into identifier-ish tokens.
var wordPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)

// Summarize renders a snapshot as DDL-style text for prompt construction.
// When the full rendering exceeds the character budget, tables are ranked by
// lexical overlap with the question and example SQL, and the lowest-ranked
// tables are elided with a note. A budget of 0 means no limit.
func Summarize(snapshot *models.SchemaSnapshot, question string, examples []models.RetrievedExample, budget int) string {
	if snapshot == nil || len(snapshot.Tables) == 0 {
		return ""
	}

	blocks := make([]string, len(snapshot.Tables))
	total := 0
	for i := range snapshot.Tables {
		blocks[i] = renderTable(snapshot, &snapshot.Tables[i])
		total += len(blocks[i]) + 1
	}

	if budget <= 0 || total <= budget {
		return strings.Join(blocks, "\n")
	}

	// Over budget: keep the most relevant tables, preserving snapshot order
	// for the kept set so output stays deterministic.
	scores := scoreTables(snapshot, question, examples)
	type ranked struct {
		index int
		score float64
	}
	order := make([]ranked, len(snapshot.Tables))
	for i := range snapshot.Tables {
		order[i] = ranked{index: i, score: scores[strings.ToLower(snapshot.Tables[i].Name)]}
	}
	sort.SliceStable(order, func(a, b int) bool {
		if order[a].score != order[b].score {
			return order[a].score > order[b].score
		}
		return snapshot.Tables[order[a].index].Name < snapshot.Tables[order[b].index].Name
	})

	keep := make(map[int]bool)
	used := 0
	for _, r := range order {
		cost := len(blocks[r.index]) + 1
		if used+cost > budget && len(keep) > 0 {
			continue
		}
		keep[r.index] = true
		used += cost
	}

	var b strings.Builder
	for i := range snapshot.Tables {
		if keep[i] {
			b.WriteString(blocks[i])
			b.WriteString("\n")
		}
	}
	if omitted := len(snapshot.Tables) - len(keep); omitted > 0 {
		fmt.Fprintf(&b, "-- %d less relevant tables omitted\n", omitted)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// scoreTables ranks tables by lexical overlap between their identifiers and
// the question plus example SQL. Singular/plural variants are folded so
// "customer" matches the customers table.
func scoreTables(snapshot *models.SchemaSnapshot, question string, examples []models.RetrievedExample) map[string]float64 {
	var text strings.Builder
	text.WriteString(question)
	for _, ex := range examples {
		text.WriteString(" ")
		text.WriteString(ex.SQL)
	}

	tokens := make(map[string]bool)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text.String()), -1) {
		tokens[word] = true
		tokens[inflection.Singular(word)] = true
		tokens[inflection.Plural(word)] = true
	}

	scores := make(map[string]float64, len(snapshot.Tables))
	for i := range snapshot.Tables {
		table := &snapshot.Tables[i]
		name := strings.ToLower(table.Name)

		var score float64
		if matchesToken(tokens, name) {
			score += 3
		}
		for _, part := range strings.Split(name, "_") {
			if matchesToken(tokens, part) {
				score += 1
			}
		}
		for _, col := range table.Columns {
			if matchesToken(tokens, strings.ToLower(col.Name)) {
				score += 0.5
			}
		}
		scores[name] = score
	}
	return scores
}

func matchesToken(tokens map[string]bool, word string) bool {
	if word == "" {
		return false
	}
	return tokens[word] || tokens[inflection.Singular(word)] || tokens[inflection.Plural(word)]
}

// renderTable produces one CREATE TABLE block with inline constraint notes
// plus comment lines for secondary indexes.
func renderTable(snapshot *models.SchemaSnapshot, table *models.SchemaTable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", table.Name)

	for i, col := range table.Columns {
		b.WriteString("  ")
		b.WriteString(col.Name)
		b.WriteString(" ")
		b.WriteString(NormalizeType(col.DataType))
		if col.IsPrimaryKey {
			b.WriteString(" PRIMARY KEY")
		} else {
			if !col.IsNullable {
				b.WriteString(" NOT NULL")
			}
			if col.IsUnique {
				b.WriteString(" UNIQUE")
			}
		}
		if ref, ok := referencedBy(snapshot, table.Name, col.Name); ok {
			b.WriteString(" REFERENCES ")
			b.WriteString(ref)
		}
		if i < len(table.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");\n")

	for _, idx := range snapshot.Indexes {
		if !strings.EqualFold(idx.Table, table.Name) || isPrimaryKeyIndex(table, idx) {
			continue
		}
		unique := ""
		if idx.IsUnique {
			unique = " UNIQUE"
		}
		fmt.Fprintf(&b, "--%s index %s on (%s)\n", unique, idx.Name, strings.Join(idx.Columns, ", "))
	}

	return b.String()
}

// referencedBy finds the FK target for a column, rendered as target(column).
func referencedBy(snapshot *models.SchemaSnapshot, table, column string) (string, bool) {
	for _, fk := range snapshot.ForeignKeys {
		if strings.EqualFold(fk.SourceTable, table) && strings.EqualFold(fk.SourceColumn, column) {
			return fmt.Sprintf("%s(%s)", fk.TargetTable, fk.TargetColumn), true
		}
	}
	return "", false
}

// isPrimaryKeyIndex reports whether an index just backs the primary key.
func isPrimaryKeyIndex(table *models.SchemaTable, idx models.SchemaIndex) bool {
	if len(idx.Columns) != 1 {
		return false
	}
	for _, col := range table.Columns {
		if col.IsPrimaryKey && strings.EqualFold(col.Name, idx.Columns[0]) {
			return true
		}
	}
	return false
}

// typeAliases maps verbose information_schema type names to the short forms
// used in prompts.
var typeAliases = map[string]string{
	"character varying":           "VARCHAR",
	"character":                   "CHAR",
	"timestamp with time zone":    "TIMESTAMPTZ",
	"timestamp without time zone": "TIMESTAMP",
	"time with time zone":         "TIMETZ",
	"time without time zone":      "TIME",
	"double precision":            "FLOAT8",
	"integer":                     "INT",
	"bigint":                      "BIGINT",
	"smallint":                    "SMALLINT",
	"boolean":                     "BOOLEAN",
	"ARRAY":                       "ARRAY",
	"USER-DEFINED":                "TEXT",
}

// NormalizeType shortens a discovered column type for prompt rendering.
func NormalizeType(dataType string) string {
	if alias, ok := typeAliases[dataType]; ok {
		return alias
	}
	return strings.ToUpper(dataType)
}
