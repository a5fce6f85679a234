package sql

import (
	"fmt"
	"os"
	"strings"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// Business rule types understood by the ruleset.
const (
	RuleForbiddenColumn = "forbidden_column"
	RuleRequiredFilter  = "required_filter"
	RuleRowLimit        = "row_limit"
)

// BusinessRule is one declarative policy evaluated against an analyzed
// statement. Severity defaults to blocking; a rule may downgrade itself to a
// warning so the query still runs but the caller sees the note.
type BusinessRule struct {
	Name     string          `yaml:"name"`
	Type     string          `yaml:"type"`
	Table    string          `yaml:"table,omitempty"`
	Column   string          `yaml:"column,omitempty"`
	Max      int             `yaml:"max,omitempty"`
	Severity models.Severity `yaml:"severity,omitempty"`
	Message  string          `yaml:"message,omitempty"`
}

// JoinPair is an approved join path between two columns that is not backed
// by a foreign key, written as table.column on each side.
type JoinPair struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// Ruleset bundles business rules with the allowed join paths. Rules are
// evaluated in file order; the first blocking violation stops further rule
// evaluation, warnings accumulate.
type Ruleset struct {
	Rules         []BusinessRule `yaml:"rules"`
	JoinWhitelist []JoinPair     `yaml:"join_whitelist"`

	pairSet map[string]struct{}
}

// NewRuleset returns an empty ruleset.
func NewRuleset() *Ruleset {
	return &Ruleset{pairSet: make(map[string]struct{})}
}

// LoadRuleset reads and validates a YAML rules file.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rs := NewRuleset()
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if err := rs.normalize(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rs, nil
}

// normalize applies severity defaults, validates every rule and indexes the
// join whitelist.
func (r *Ruleset) normalize() error {
	for i := range r.Rules {
		rule := &r.Rules[i]
		switch rule.Type {
		case RuleForbiddenColumn:
			if rule.Column == "" {
				return fmt.Errorf("rule %d (%s): column is required", i, rule.Type)
			}
		case RuleRequiredFilter:
			if rule.Table == "" || rule.Column == "" {
				return fmt.Errorf("rule %d (%s): table and column are required", i, rule.Type)
			}
		case RuleRowLimit:
			if rule.Max <= 0 {
				return fmt.Errorf("rule %d (%s): max must be positive", i, rule.Type)
			}
		default:
			return fmt.Errorf("rule %d: unknown type %q", i, rule.Type)
		}
		switch rule.Severity {
		case "":
			rule.Severity = models.SeverityBlocking
		case models.SeverityBlocking, models.SeverityWarning:
		default:
			return fmt.Errorf("rule %d (%s): severity must be blocking or warning, got %q", i, rule.Type, rule.Severity)
		}
		if rule.Name == "" {
			rule.Name = rule.Type
		}
	}

	if r.pairSet == nil {
		r.pairSet = make(map[string]struct{})
	}
	for i, p := range r.JoinWhitelist {
		lt, lc, ok := splitColumnPath(p.Left)
		if !ok {
			return fmt.Errorf("join_whitelist %d: left must be table.column, got %q", i, p.Left)
		}
		rt, rc, ok := splitColumnPath(p.Right)
		if !ok {
			return fmt.Errorf("join_whitelist %d: right must be table.column, got %q", i, p.Right)
		}
		r.pairSet[pairKey(lt, lc, rt, rc)] = struct{}{}
	}
	return nil
}

// JoinAllowed reports whether the ruleset approves joining the two columns,
// in either direction. Beyond the explicit whitelist, the conventional
// <singular>_id naming of a table's primary key is implicitly approved, so
// orders.customer_id = customers.id joins work in schemas that follow the
// convention without a declared foreign key.
func (r *Ruleset) JoinAllowed(tableA, columnA, tableB, columnB string) bool {
	if _, ok := r.pairSet[pairKey(tableA, columnA, tableB, columnB)]; ok {
		return true
	}
	if _, ok := r.pairSet[pairKey(tableB, columnB, tableA, columnA)]; ok {
		return true
	}
	return conventionalKeyPair(tableA, columnA, tableB, columnB) ||
		conventionalKeyPair(tableB, columnB, tableA, columnA)
}

// conventionalKeyPair reports whether columnA names tableB's id column by the
// <singular table>_id convention.
func conventionalKeyPair(tableA, columnA, tableB, columnB string) bool {
	if !strings.EqualFold(columnB, "id") {
		return false
	}
	return strings.EqualFold(columnA, inflection.Singular(strings.ToLower(tableB))+"_id")
}

// Evaluate runs the business rules against an analyzed statement. Rules run
// in order; evaluation stops after the first blocking violation.
func (r *Ruleset) Evaluate(stmt *Statement, sc *scope, schema *models.SchemaSnapshot) []models.Violation {
	if stmt == nil || len(r.Rules) == 0 {
		return nil
	}

	var out []models.Violation
	for _, rule := range r.Rules {
		viol, hit := r.evaluateRule(rule, stmt, sc, schema)
		if !hit {
			continue
		}
		out = append(out, viol)
		if viol.Severity == models.SeverityBlocking {
			break
		}
	}
	return out
}

func (r *Ruleset) evaluateRule(rule BusinessRule, stmt *Statement, sc *scope, schema *models.SchemaSnapshot) (models.Violation, bool) {
	switch rule.Type {
	case RuleForbiddenColumn:
		return r.evaluateForbiddenColumn(rule, stmt, sc, schema)
	case RuleRequiredFilter:
		return r.evaluateRequiredFilter(rule, stmt, sc, schema)
	case RuleRowLimit:
		return r.evaluateRowLimit(rule, stmt)
	}
	return models.Violation{}, false
}

func (r *Ruleset) evaluateForbiddenColumn(rule BusinessRule, stmt *Statement, sc *scope, schema *models.SchemaSnapshot) (models.Violation, bool) {
	for _, col := range stmt.Columns {
		if col.Star || !strings.EqualFold(col.Name, rule.Column) {
			continue
		}
		if rule.Table == "" {
			return r.violation(rule, fmt.Sprintf("column %q may not be referenced", col.Name)), true
		}
		if col.Qualifier != "" {
			if table, kind := sc.resolve(col.Qualifier); kind == refBase && strings.EqualFold(table, rule.Table) {
				return r.violation(rule, fmt.Sprintf("column %s.%s may not be referenced", rule.Table, rule.Column)), true
			}
			continue
		}
		// bare reference: forbidden when the protected table is in scope and
		// actually has the column
		if tableInScope(sc, rule.Table) && schema != nil && schema.HasColumn(rule.Table, rule.Column) {
			return r.violation(rule, fmt.Sprintf("column %s.%s may not be referenced", rule.Table, rule.Column)), true
		}
	}

	// SELECT * would expose the column as well
	if rule.Table != "" && tableInScope(sc, rule.Table) && schema != nil && schema.HasColumn(rule.Table, rule.Column) {
		exposed := stmt.HasStar
		if !exposed {
			for _, col := range stmt.Columns {
				if !col.Star || col.Qualifier == "" {
					continue
				}
				if table, kind := sc.resolve(col.Qualifier); kind == refBase && strings.EqualFold(table, rule.Table) {
					exposed = true
					break
				}
			}
		}
		if exposed {
			return r.violation(rule, fmt.Sprintf("SELECT * would expose %s.%s; list the needed columns instead", rule.Table, rule.Column)), true
		}
	}
	return models.Violation{}, false
}

func (r *Ruleset) evaluateRequiredFilter(rule BusinessRule, stmt *Statement, sc *scope, schema *models.SchemaSnapshot) (models.Violation, bool) {
	if !tableInScope(sc, rule.Table) {
		return models.Violation{}, false
	}
	for _, col := range stmt.Columns {
		// A JOIN ON predicate constrains the column as well as WHERE does.
		if col.Clause != ClauseWhere && col.Clause != ClauseOn {
			continue
		}
		if !strings.EqualFold(col.Name, rule.Column) {
			continue
		}
		if col.Qualifier == "" {
			if schema == nil || schema.HasColumn(rule.Table, rule.Column) {
				return models.Violation{}, false
			}
			continue
		}
		if table, kind := sc.resolve(col.Qualifier); kind == refBase && strings.EqualFold(table, rule.Table) {
			return models.Violation{}, false
		}
	}
	return r.violation(rule, fmt.Sprintf("queries against %s must filter on %s", rule.Table, rule.Column)), true
}

func (r *Ruleset) evaluateRowLimit(rule BusinessRule, stmt *Statement) (models.Violation, bool) {
	if stmt.Limit == nil {
		return r.violation(rule, fmt.Sprintf("query has no LIMIT clause; at most %d rows may be requested", rule.Max)), true
	}
	if *stmt.Limit > rule.Max {
		return r.violation(rule, fmt.Sprintf("LIMIT %d exceeds the maximum of %d rows", *stmt.Limit, rule.Max)), true
	}
	return models.Violation{}, false
}

func (r *Ruleset) violation(rule BusinessRule, defaultMsg string) models.Violation {
	msg := rule.Message
	if msg == "" {
		msg = defaultMsg
	}
	return models.Violation{Rule: rule.Name, Message: msg, Severity: rule.Severity}
}

func tableInScope(sc *scope, table string) bool {
	for _, t := range sc.baseTables {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}

func splitColumnPath(s string) (table, column string, ok bool) {
	idx := strings.LastIndex(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

func pairKey(tableA, columnA, tableB, columnB string) string {
	return strings.ToLower(tableA) + "." + strings.ToLower(columnA) + "|" +
		strings.ToLower(tableB) + "." + strings.ToLower(columnB)
}
