// Package sql analyzes generated SQL and validates it against a schema
// snapshot before anything reaches the database.
package sql

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// Validator checks candidate queries by static analysis only; it never
// touches the database. Checks run in four categories in a fixed order:
// structure, identifier existence, join relationships, then business rules.
// A blocking violation short-circuits the rest of its own category but never
// prevents the later categories from running, so one pass reports as much as
// it can.
type Validator struct {
	ruleset *Ruleset
	logger  *zap.Logger
}

// NewValidator builds a validator with the given business ruleset. A nil
// ruleset means no business rules and no extra allowed join paths.
func NewValidator(ruleset *Ruleset, logger *zap.Logger) *Validator {
	if ruleset == nil {
		ruleset = NewRuleset()
	}
	return &Validator{
		ruleset: ruleset,
		logger:  logger.Named("validator"),
	}
}

// Validate analyzes the candidate SQL and returns a verdict. The candidate
// is accepted only when no category produced a blocking violation; warnings
// ride along on accepted verdicts.
func (v *Validator) Validate(candidate models.CandidateQuery, schema *models.SchemaSnapshot) models.ValidationVerdict {
	stmt, violations := v.checkStructure(candidate.SQL)

	sc := newScope(stmt)
	violations = append(violations, v.checkExistence(stmt, sc, schema)...)
	violations = append(violations, v.checkRelationships(stmt, sc, schema)...)
	violations = append(violations, v.ruleset.Evaluate(stmt, sc, schema)...)

	verdict := models.ValidationVerdict{
		Accepted:   !hasBlocking(violations),
		Violations: violations,
	}

	if !verdict.Accepted {
		blocking := verdict.Blocking()
		v.logger.Debug("Candidate rejected",
			zap.String("rule", blocking[0].Rule),
			zap.String("reason", blocking[0].Message),
			zap.Int("violations", len(violations)))
	} else if len(violations) > 0 {
		v.logger.Debug("Candidate accepted with warnings",
			zap.Int("warnings", len(violations)))
	}
	return verdict
}

// checkStructure enforces the single read-only SELECT contract. It always
// returns a statement, possibly a minimal one, so the later categories can
// inspect whatever was recognized.
func (v *Validator) checkStructure(sqlText string) (*Statement, []models.Violation) {
	if strings.TrimSpace(sqlText) == "" {
		return &Statement{}, []models.Violation{forbidden("statement is empty")}
	}

	stmt, err := Analyze(sqlText)
	if err != nil {
		return stmt, []models.Violation{forbidden(fmt.Sprintf("statement could not be parsed: %v", err))}
	}
	if stmt.MultiStatement {
		return stmt, []models.Violation{forbidden("multiple SQL statements are not allowed; submit a single SELECT")}
	}
	if stmt.Kind != StatementSelect {
		msg := "only read-only SELECT statements are permitted"
		if stmt.Kind != StatementOther && stmt.Kind != "" {
			msg = fmt.Sprintf("%s statements are not allowed; %s", stmt.Kind, msg)
		}
		return stmt, []models.Violation{forbidden(msg)}
	}
	if stmt.ModifyingCTE {
		return stmt, []models.Violation{forbidden("WITH clause contains a data-modifying statement")}
	}
	if stmt.HasInto {
		return stmt, []models.Violation{forbidden("SELECT INTO creates a table and is not allowed")}
	}
	if stmt.HasLocking {
		return stmt, []models.Violation{forbidden("row locking clauses (FOR UPDATE / FOR SHARE) are not allowed")}
	}
	return stmt, nil
}

// checkExistence verifies every table and column reference against the
// schema snapshot. References through CTEs, subquery aliases and table
// functions are skipped since their shape is not in the snapshot.
func (v *Validator) checkExistence(stmt *Statement, sc *scope, schema *models.SchemaSnapshot) []models.Violation {
	if schema == nil {
		return nil
	}

	for _, t := range stmt.Tables {
		if t.Derived {
			continue
		}
		if _, kind := sc.resolve(t.Name); kind == refDerived {
			continue
		}
		if !schema.HasTable(t.Name) {
			msg := fmt.Sprintf("table %q does not exist", t.Name)
			if hint, ok := nearestIdentifier(t.Name, schema.TableNames()); ok {
				msg += fmt.Sprintf(" (did you mean %q?)", hint)
			}
			return []models.Violation{unknownIdentifier(msg)}
		}
	}

	for _, col := range stmt.Columns {
		if col.Qualifier != "" {
			table, kind := sc.resolve(col.Qualifier)
			if kind == refDerived {
				continue
			}
			if kind == refUnknown {
				msg := fmt.Sprintf("%q is not a table or alias in the FROM clause (reference %q)", col.Qualifier, col.String())
				return []models.Violation{unknownIdentifier(msg)}
			}
			if col.Star {
				continue
			}
			if !schema.HasColumn(table, col.Name) {
				msg := fmt.Sprintf("column %q does not exist in table %q", col.Name, table)
				if hint, ok := nearestIdentifier(col.Name, schema.ColumnNames(table)); ok {
					msg += fmt.Sprintf(" (did you mean %q?)", hint)
				}
				return []models.Violation{unknownIdentifier(msg)}
			}
			continue
		}

		if col.Star || col.Name == "" {
			continue
		}
		if sc.isSelectAlias(col.Name) || sc.hasDerived || len(sc.baseTables) == 0 {
			continue
		}
		found := false
		for _, t := range sc.baseTables {
			if schema.HasColumn(t, col.Name) {
				found = true
				break
			}
		}
		if !found {
			msg := fmt.Sprintf("column %q does not exist in any table referenced by the query (%s)",
				col.Name, strings.Join(sc.baseTables, ", "))
			if hint, ok := nearestIdentifier(col.Name, sc.allColumns(schema)); ok {
				msg += fmt.Sprintf(" (did you mean %q?)", hint)
			}
			return []models.Violation{unknownIdentifier(msg)}
		}
	}
	return nil
}

// checkRelationships verifies that every join predicate follows a declared
// foreign key or an allowed join path from the ruleset. Statements without
// any join are exempt.
func (v *Validator) checkRelationships(stmt *Statement, sc *scope, schema *models.SchemaSnapshot) []models.Violation {
	if schema == nil || (len(stmt.Joins) == 0 && len(stmt.CommaGroups) == 0) {
		return nil
	}

	for _, join := range stmt.Joins {
		if join.Kind == JoinCross {
			return []models.Violation{invalidJoin("CROSS JOIN is not allowed: it produces a cartesian product")}
		}
		if join.Natural {
			return []models.Violation{invalidJoin("NATURAL JOIN hides its join condition; use an explicit ON clause")}
		}
		target := describeTable(join.Table)
		if !join.HasOn && len(join.Using) == 0 {
			return []models.Violation{invalidJoin(fmt.Sprintf("join with %s has no join condition", target))}
		}
		if join.HasOn && len(join.On) == 0 {
			return []models.Violation{invalidJoin(fmt.Sprintf("join with %s has no equality predicate linking it to another table", target))}
		}
		for _, pair := range join.On {
			if msg, ok := v.checkPair(pair, sc, schema); !ok {
				return []models.Violation{invalidJoin(msg)}
			}
		}
		if len(join.Using) > 0 {
			if msg, ok := v.checkUsing(join, sc, schema); !ok {
				return []models.Violation{invalidJoin(msg)}
			}
		}
	}

	for _, group := range stmt.CommaGroups {
		if msg, ok := v.checkCommaGroup(group, stmt.WherePairs, sc, schema); !ok {
			return []models.Violation{invalidJoin(msg)}
		}
	}
	return nil
}

// checkPair decides whether one column = column predicate is an approved way
// to connect two tables. Pairs involving derived tables or unresolvable
// references pass; the existence category already reported anything unknown.
func (v *Validator) checkPair(pair EqualityPair, sc *scope, schema *models.SchemaSnapshot) (string, bool) {
	lt, lok := resolvePairSide(pair.Left, sc, schema)
	rt, rok := resolvePairSide(pair.Right, sc, schema)
	if !lok || !rok {
		return "", true
	}
	if strings.EqualFold(lt, rt) {
		return "", true
	}
	if schema.HasForeignKey(lt, pair.Left.Name, rt, pair.Right.Name) {
		return "", true
	}
	if v.ruleset.JoinAllowed(lt, pair.Left.Name, rt, pair.Right.Name) {
		return "", true
	}
	return fmt.Sprintf("join between %s.%s and %s.%s does not follow a declared foreign key or an approved join path",
		lt, pair.Left.Name, rt, pair.Right.Name), false
}

func (v *Validator) checkUsing(join Join, sc *scope, schema *models.SchemaSnapshot) (string, bool) {
	rt, kind := sc.resolve(tableKey(join.Table))
	if kind != refBase {
		return "", true
	}
	for _, col := range join.Using {
		matched := false
		for _, other := range sc.baseTables {
			if strings.EqualFold(other, rt) {
				continue
			}
			if schema.HasForeignKey(rt, col, other, col) || v.ruleset.JoinAllowed(rt, col, other, col) {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Sprintf("USING (%s) on %s does not correspond to a declared foreign key or an approved join path", col, rt), false
		}
	}
	return "", true
}

// checkCommaGroup handles old-style joins: FROM a, b needs a WHERE predicate
// connecting the listed tables, and that predicate must itself be approved.
func (v *Validator) checkCommaGroup(group []TableRef, pairs []EqualityPair, sc *scope, schema *models.SchemaSnapshot) (string, bool) {
	names := make([]string, 0, len(group))
	members := make(map[string]struct{}, len(group)*2)
	for _, t := range group {
		key := tableKey(t)
		if key == "" {
			continue
		}
		names = append(names, key)
		members[strings.ToLower(key)] = struct{}{}
		if t.Alias != "" {
			members[strings.ToLower(t.Alias)] = struct{}{}
		}
	}
	if len(names) < 2 {
		return "", true
	}

	connected := false
	for _, pair := range pairs {
		lq := strings.ToLower(pair.Left.Qualifier)
		rq := strings.ToLower(pair.Right.Qualifier)
		if lq == "" || rq == "" || lq == rq {
			continue
		}
		_, lIn := members[lq]
		_, rIn := members[rq]
		if !lIn || !rIn {
			continue
		}
		connected = true
		if msg, ok := v.checkPair(pair, sc, schema); !ok {
			return msg, false
		}
	}
	if !connected {
		return fmt.Sprintf("tables %s are listed together without a join condition", strings.Join(names, ", ")), false
	}
	return "", true
}

// resolvePairSide maps one side of an equality pair to its base table. Bare
// column names resolve only when exactly one in-scope table has the column.
func resolvePairSide(ref ColumnRef, sc *scope, schema *models.SchemaSnapshot) (string, bool) {
	if ref.Qualifier != "" {
		table, kind := sc.resolve(ref.Qualifier)
		return table, kind == refBase
	}
	owner := ""
	for _, t := range sc.baseTables {
		if schema.HasColumn(t, ref.Name) {
			if owner != "" {
				return "", false
			}
			owner = t
		}
	}
	return owner, owner != ""
}

func describeTable(t TableRef) string {
	switch {
	case t.Name != "" && t.Alias != "":
		return fmt.Sprintf("%s (alias %s)", t.Name, t.Alias)
	case t.Name != "":
		return t.Name
	case t.Alias != "":
		return t.Alias
	}
	return "subquery"
}

func tableKey(t TableRef) string {
	if t.Name != "" {
		return t.Name
	}
	return t.Alias
}

func forbidden(msg string) models.Violation {
	return models.Violation{Rule: models.RuleForbiddenStatementType, Message: msg, Severity: models.SeverityBlocking}
}

func unknownIdentifier(msg string) models.Violation {
	return models.Violation{Rule: models.RuleUnknownIdentifier, Message: msg, Severity: models.SeverityBlocking}
}

func invalidJoin(msg string) models.Violation {
	return models.Violation{Rule: models.RuleInvalidJoinCondition, Message: msg, Severity: models.SeverityBlocking}
}

func hasBlocking(violations []models.Violation) bool {
	for _, viol := range violations {
		if viol.Severity == models.SeverityBlocking {
			return true
		}
	}
	return false
}

// refKind classifies what a qualifier resolves to.
type refKind int

const (
	refBase refKind = iota
	refDerived
	refUnknown
)

// scope is the name resolution context of one statement: aliases and table
// names mapped to base tables, plus the set of names whose columns cannot be
// checked (CTEs, subqueries, table functions).
type scope struct {
	aliases       map[string]string
	derived       map[string]struct{}
	baseTables    []string
	selectAliases map[string]struct{}
	hasDerived    bool
}

func newScope(stmt *Statement) *scope {
	sc := &scope{
		aliases:       make(map[string]string),
		derived:       make(map[string]struct{}),
		selectAliases: make(map[string]struct{}),
	}
	if stmt == nil {
		return sc
	}
	for _, cte := range stmt.CTEs {
		sc.derived[strings.ToLower(cte)] = struct{}{}
		sc.hasDerived = true
	}
	for _, t := range stmt.Tables {
		if t.Derived {
			sc.hasDerived = true
			if t.Alias != "" {
				sc.derived[strings.ToLower(t.Alias)] = struct{}{}
			}
			continue
		}
		lname := strings.ToLower(t.Name)
		if _, isCTE := sc.derived[lname]; isCTE {
			if t.Alias != "" {
				sc.derived[strings.ToLower(t.Alias)] = struct{}{}
			}
			continue
		}
		sc.aliases[lname] = t.Name
		if t.Alias != "" {
			sc.aliases[strings.ToLower(t.Alias)] = t.Name
		}
		known := false
		for _, b := range sc.baseTables {
			if strings.EqualFold(b, t.Name) {
				known = true
				break
			}
		}
		if !known {
			sc.baseTables = append(sc.baseTables, t.Name)
		}
	}
	for _, a := range stmt.SelectAliases {
		sc.selectAliases[strings.ToLower(a)] = struct{}{}
	}
	return sc
}

func (sc *scope) resolve(qualifier string) (string, refKind) {
	q := strings.ToLower(qualifier)
	if _, ok := sc.derived[q]; ok {
		return "", refDerived
	}
	if t, ok := sc.aliases[q]; ok {
		return t, refBase
	}
	return "", refUnknown
}

func (sc *scope) isSelectAlias(name string) bool {
	_, ok := sc.selectAliases[strings.ToLower(name)]
	return ok
}

// allColumns returns the column names of every base table in scope, used for
// spelling suggestions on bare references.
func (sc *scope) allColumns(schema *models.SchemaSnapshot) []string {
	var out []string
	for _, t := range sc.baseTables {
		out = append(out, schema.ColumnNames(t)...)
	}
	return out
}
