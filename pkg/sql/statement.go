package sql

import (
	"fmt"
	"strconv"
	"strings"
)

// StatementKind is the leading keyword of a statement, uppercased.
type StatementKind string

const (
	StatementSelect StatementKind = "SELECT"
	StatementInsert StatementKind = "INSERT"
	StatementUpdate StatementKind = "UPDATE"
	StatementDelete StatementKind = "DELETE"
	StatementDrop   StatementKind = "DROP"
	StatementCreate StatementKind = "CREATE"
	StatementOther  StatementKind = "OTHER"
)

// Clause identifies where in a statement a column reference appeared.
type Clause int

const (
	ClauseNone Clause = iota
	ClauseSelect
	ClauseFrom
	ClauseWhere
	ClauseGroupBy
	ClauseHaving
	ClauseOrderBy
	ClauseOn
	ClauseLimit
)

// ColumnRef is a column reference extracted from a statement.
// Qualifier is the table name or alias before the dot, or "" for a bare
// reference. Star marks qualified wildcards such as o.*.
type ColumnRef struct {
	Qualifier string
	Name      string
	Clause    Clause
	Star      bool
}

func (c ColumnRef) String() string {
	name := c.Name
	if c.Star {
		name = "*"
	}
	if c.Qualifier == "" {
		return name
	}
	return c.Qualifier + "." + name
}

// TableRef is a table mentioned in a FROM or JOIN clause. Derived refs are
// subqueries, table functions and VALUES lists whose columns cannot be
// checked against the schema.
type TableRef struct {
	Name    string
	Alias   string
	Derived bool
}

// EqualityPair is a column = column predicate.
type EqualityPair struct {
	Left  ColumnRef
	Right ColumnRef
}

// JoinKind distinguishes explicit join forms.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
	JoinCross JoinKind = "CROSS"
)

// Join is one explicit JOIN with its condition.
type Join struct {
	Kind    JoinKind
	Natural bool
	Table   TableRef
	HasOn   bool
	On      []EqualityPair // equality predicates found in the ON clause
	Using   []string
}

// Statement is the analyzed form of a SQL statement. It is built by a single
// pass over the token stream and collects everything the validator needs:
// statement kind, table and column references at every nesting level,
// explicit joins with their predicates, and structural flags.
//
// Limitations: alias scopes are flattened, so a subquery alias that shadows
// an outer alias resolves to whichever was declared first. That is a
// conservative failure mode; it can only suppress checks, never invent a
// violation for valid SQL.
type Statement struct {
	Kind           StatementKind
	Normalized     string // input with surrounding whitespace and the trailing semicolon removed
	MultiStatement bool

	CTEs         []string
	ModifyingCTE bool // a WITH body is INSERT/UPDATE/DELETE

	Tables      []TableRef
	Joins       []Join
	CommaGroups [][]TableRef // FROM clauses listing two or more comma-separated items

	Columns       []ColumnRef
	SelectAliases []string
	WherePairs    []EqualityPair // column = column predicates in WHERE clauses

	HasStar    bool
	HasInto    bool // SELECT INTO creates a table
	HasLocking bool // FOR UPDATE / FOR SHARE
	Limit      *int
}

// Analyze tokenizes and analyzes a SQL statement. On a lexical error it
// returns the error together with a minimal Statement so callers can still
// inspect what was recognized. Only the first statement is analyzed when the
// input contains several; MultiStatement is set so the caller can reject it.
func Analyze(input string) (*Statement, error) {
	stmt := &Statement{Normalized: stripTrailingSemicolon(strings.TrimSpace(input))}

	toks, err := Tokenize(input)
	if err != nil {
		return stmt, err
	}

	// anything after a semicolon means a second statement
	end := len(toks)
	for i, t := range toks {
		if t.Type == TokenSemicolon {
			if i+1 < len(toks) {
				stmt.MultiStatement = true
			}
			end = i
			break
		}
	}
	toks = toks[:end]
	if len(toks) == 0 {
		return stmt, fmt.Errorf("empty statement")
	}

	p := &parser{toks: toks, stmt: stmt}
	p.parseTop()
	return stmt, nil
}

// stripTrailingSemicolon removes one trailing semicolon and surrounding
// whitespace.
func stripTrailingSemicolon(s string) string {
	s = strings.TrimRight(s, " \t\n\r")
	if strings.HasSuffix(s, ";") {
		s = strings.TrimRight(strings.TrimSuffix(s, ";"), " \t\n\r")
	}
	return s
}

type parser struct {
	toks []Token
	stmt *Statement
}

func (p *parser) parseTop() {
	switch p.toks[0].Upper() {
	case "SELECT":
		p.stmt.Kind = StatementSelect
		p.walkBody(0, len(p.toks), true)
	case "WITH":
		pos := p.parseWith(0, len(p.toks))
		kind := StatementOther
		if pos < len(p.toks) {
			kind = kindFromKeyword(p.toks[pos].Upper())
		}
		p.stmt.Kind = kind
		if kind == StatementSelect {
			p.walkBody(pos, len(p.toks), true)
		}
	default:
		if p.toks[0].Type == TokenLParen {
			// parenthesized select, usually the head of a set operation
			if inner, after, ok := p.subquery(0, len(p.toks)); ok {
				p.stmt.Kind = StatementSelect
				p.parseSelectBody(inner[0], inner[1])
				p.walkBody(after, len(p.toks), true)
				return
			}
		}
		p.stmt.Kind = kindFromKeyword(p.toks[0].Upper())
	}
}

func kindFromKeyword(word string) StatementKind {
	switch word {
	case "SELECT":
		return StatementSelect
	case "INSERT":
		return StatementInsert
	case "UPDATE":
		return StatementUpdate
	case "DELETE":
		return StatementDelete
	case "DROP":
		return StatementDrop
	case "CREATE":
		return StatementCreate
	case "ALTER", "TRUNCATE", "GRANT", "REVOKE", "COPY", "MERGE", "CALL", "DO",
		"VACUUM", "REINDEX", "CLUSTER", "COMMENT", "SET", "SHOW", "RESET",
		"BEGIN", "COMMIT", "ROLLBACK", "EXPLAIN", "LOCK", "LISTEN", "NOTIFY",
		"PREPARE", "EXECUTE", "DEALLOCATE", "DECLARE", "FETCH", "REFRESH", "VALUES":
		return StatementKind(word)
	}
	return StatementOther
}

// parseSelectBody analyzes a [WITH ...] SELECT between lo and hi.
func (p *parser) parseSelectBody(lo, hi int) {
	i := lo
	if i < hi && p.toks[i].Upper() == "WITH" {
		i = p.parseWith(i, hi)
	}
	p.walkBody(i, hi, true)
}

// parseWith consumes a WITH clause starting at lo and returns the index of
// the statement that follows it. CTE names are recorded; each body is
// analyzed recursively.
func (p *parser) parseWith(lo, hi int) int {
	i := lo + 1 // past WITH
	if i < hi && p.toks[i].Upper() == "RECURSIVE" {
		i++
	}
	for i < hi {
		if !isIdent(p.toks[i]) {
			break
		}
		p.stmt.CTEs = append(p.stmt.CTEs, p.toks[i].Text)
		i++
		// optional column list
		if i < hi && p.toks[i].Type == TokenLParen {
			i = p.matchParen(i, hi) + 1
		}
		if i >= hi || p.toks[i].Upper() != "AS" {
			break
		}
		i++
		if i < hi && p.toks[i].Upper() == "NOT" {
			i++
		}
		if i < hi && p.toks[i].Upper() == "MATERIALIZED" {
			i++
		}
		if i >= hi || p.toks[i].Type != TokenLParen {
			break
		}
		close := p.matchParen(i, hi)
		p.parseCTEBody(i+1, close)
		i = close + 1
		if i < hi && p.toks[i].Type == TokenComma {
			i++
			continue
		}
		break
	}
	return i
}

func (p *parser) parseCTEBody(lo, hi int) {
	if lo >= hi {
		return
	}
	switch p.toks[lo].Upper() {
	case "SELECT", "WITH":
		p.parseSelectBody(lo, hi)
	case "VALUES", "TABLE":
		// no references to collect
	default:
		p.stmt.ModifyingCTE = true
	}
}

// walkBody walks a select body (or any expression span when topLevel is
// false) collecting column references. At top level it tracks the current
// clause, hands FROM clauses to parseFromClause, and records select aliases,
// LIMIT values and structural flags.
func (p *parser) walkBody(lo, hi int, topLevel bool) {
	p.walkClause(lo, hi, ClauseNone, topLevel)
}

func (p *parser) walkClause(lo, hi int, clause Clause, topLevel bool) {
	i := lo
	termEnd := false // the previous token completed a value expression

	for i < hi {
		tok := p.toks[i]

		switch tok.Type {
		case TokenLParen:
			close := p.matchParen(i, hi)
			if first, ok := p.firstWord(i+1, close); ok && (first == "SELECT" || first == "WITH") {
				p.parseSelectBody(i+1, close)
			} else {
				p.walkClause(i+1, close, clause, false)
			}
			i = close + 1
			termEnd = true
			continue

		case TokenOperator:
			if tok.Text == "::" {
				i = p.skipTypeWords(i+1, hi)
				termEnd = true
				continue
			}
			termEnd = false
			i++
			continue

		case TokenComma:
			termEnd = false
			i++
			continue

		case TokenStar:
			if topLevel && clause == ClauseSelect && !termEnd {
				p.stmt.HasStar = true
			}
			termEnd = true
			i++
			continue

		case TokenString, TokenNumber, TokenParam:
			termEnd = true
			i++
			continue

		case TokenWord, TokenQuotedIdent:
			// handled below

		default:
			termEnd = false
			i++
			continue
		}

		word := tok.Upper()

		if topLevel {
			switch word {
			case "FROM":
				i = p.parseFromClause(i+1, hi)
				clause = ClauseFrom
				termEnd = false
				continue
			case "WHERE":
				next := p.clauseEnd(i+1, hi)
				p.walkPredicates(i+1, next, ClauseWhere, nil)
				i = next
				clause = ClauseWhere
				termEnd = false
				continue
			case "GROUP":
				clause = ClauseGroupBy
				i++
				termEnd = false
				continue
			case "HAVING":
				clause = ClauseHaving
				i++
				termEnd = false
				continue
			case "ORDER":
				clause = ClauseOrderBy
				i++
				termEnd = false
				continue
			case "WINDOW":
				clause = ClauseNone
				i++
				termEnd = false
				continue
			case "LIMIT":
				clause = ClauseLimit
				i++
				if i < hi && p.toks[i].Type == TokenNumber && p.stmt.Limit == nil {
					if n, err := strconv.Atoi(p.toks[i].Text); err == nil {
						p.stmt.Limit = &n
					}
				}
				termEnd = false
				continue
			case "OFFSET", "FETCH":
				clause = ClauseLimit
				i++
				termEnd = false
				continue
			case "UNION", "INTERSECT", "EXCEPT":
				i++
				if i < hi {
					if u := p.toks[i].Upper(); u == "ALL" || u == "DISTINCT" {
						i++
					}
				}
				clause = ClauseNone
				termEnd = false
				continue
			case "SELECT":
				clause = ClauseSelect
				i++
				termEnd = false
				continue
			case "INTO":
				if clause == ClauseSelect {
					p.stmt.HasInto = true
				}
				i++
				// skip the target name
				if i < hi && isIdent(p.toks[i]) && !isNonColumnKeyword(p.toks[i].Upper()) {
					i++
					for i+1 < hi && p.toks[i].Type == TokenDot && isIdent(p.toks[i+1]) {
						i += 2
					}
				}
				termEnd = false
				continue
			case "FOR":
				if i+1 < hi {
					switch p.toks[i+1].Upper() {
					case "UPDATE", "SHARE", "NO", "KEY":
						p.stmt.HasLocking = true
					}
				}
				i++
				termEnd = false
				continue
			case "AS":
				if clause == ClauseSelect && i+1 < hi && isIdent(p.toks[i+1]) {
					p.stmt.SelectAliases = append(p.stmt.SelectAliases, p.toks[i+1].Text)
					i += 2
					termEnd = true
					continue
				}
				i++
				termEnd = false
				continue
			}
		}

		if isNonColumnKeyword(word) {
			i++
			termEnd = word == "END" || word == "NULL" || word == "TRUE" || word == "FALSE"
			continue
		}

		// function call: never a column reference
		if i+1 < hi && p.toks[i+1].Type == TokenLParen {
			i++
			termEnd = false
			continue
		}

		// implicit select alias: a bare identifier right after a completed term
		if topLevel && clause == ClauseSelect && termEnd && !p.followedByDot(i, hi) {
			p.stmt.SelectAliases = append(p.stmt.SelectAliases, tok.Text)
			i++
			termEnd = true
			continue
		}

		ref, next := p.parseColumnRef(i, hi, clause)
		p.stmt.Columns = append(p.stmt.Columns, ref)
		i = next
		termEnd = true
	}
}

// walkPredicates collects column references like walkClause and additionally
// records column = column equality pairs. Pairs go to the join when one is
// given, otherwise to the statement's WHERE pairs.
func (p *parser) walkPredicates(lo, hi int, clause Clause, join *Join) {
	i := lo
	var pending *ColumnRef
	sawEq := false

	record := func(pair EqualityPair) {
		if join != nil {
			join.On = append(join.On, pair)
			return
		}
		p.stmt.WherePairs = append(p.stmt.WherePairs, pair)
	}

	for i < hi {
		tok := p.toks[i]

		switch tok.Type {
		case TokenLParen:
			close := p.matchParen(i, hi)
			if first, ok := p.firstWord(i+1, close); ok && (first == "SELECT" || first == "WITH") {
				p.parseSelectBody(i+1, close)
			} else if i > lo && isIdent(p.toks[i-1]) && !isNonColumnKeyword(p.toks[i-1].Upper()) {
				// function arguments
				p.walkClause(i+1, close, clause, false)
			} else {
				p.walkPredicates(i+1, close, clause, join)
			}
			i = close + 1
			pending, sawEq = nil, false
			continue

		case TokenOperator:
			if tok.Text == "=" && pending != nil {
				sawEq = true
			} else if tok.Text == "::" {
				i = p.skipTypeWords(i+1, hi)
				continue
			} else {
				pending, sawEq = nil, false
			}
			i++
			continue

		case TokenWord, TokenQuotedIdent:
			word := tok.Upper()
			if isNonColumnKeyword(word) {
				// a keyword between two references breaks the pattern
				pending, sawEq = nil, false
				i++
				continue
			}
			if i+1 < hi && p.toks[i+1].Type == TokenLParen {
				// function call; its arguments are handled by the paren branch
				i++
				continue
			}
			ref, next := p.parseColumnRef(i, hi, clause)
			p.stmt.Columns = append(p.stmt.Columns, ref)
			if sawEq && pending != nil {
				record(EqualityPair{Left: *pending, Right: ref})
				pending, sawEq = nil, false
			} else {
				r := ref
				pending, sawEq = &r, false
			}
			i = next
			continue

		default:
			// literals and punctuation break a column = column pattern
			pending, sawEq = nil, false
			i++
			continue
		}
	}
}

// parseColumnRef reads a possibly qualified column reference starting at i.
// Three-part names keep the last segment as the column and join the rest as
// the qualifier, with a leading public. stripped to match snapshot naming.
func (p *parser) parseColumnRef(i, hi int, clause Clause) (ColumnRef, int) {
	var parts []string
	parts = append(parts, p.toks[i].Text)
	i++
	star := false
	for i+1 < hi && p.toks[i].Type == TokenDot {
		if p.toks[i+1].Type == TokenStar {
			star = true
			i += 2
			break
		}
		if !isIdent(p.toks[i+1]) {
			break
		}
		parts = append(parts, p.toks[i+1].Text)
		i += 2
	}

	ref := ColumnRef{Clause: clause, Star: star}
	if star {
		ref.Qualifier = strings.Join(parts, ".")
	} else if len(parts) == 1 {
		ref.Name = parts[0]
	} else {
		ref.Name = parts[len(parts)-1]
		ref.Qualifier = strings.Join(parts[:len(parts)-1], ".")
	}
	ref.Qualifier = strings.TrimPrefix(ref.Qualifier, "public.")
	return ref, i
}

// parseFromClause consumes a FROM clause including joins and returns the
// index of the first token after it.
func (p *parser) parseFromClause(lo, hi int) int {
	var group []TableRef

	ref, i := p.parseFromItem(lo, hi)
	group = append(group, ref)

	for i < hi {
		tok := p.toks[i]

		if tok.Type == TokenComma {
			ref, i = p.parseFromItem(i+1, hi)
			group = append(group, ref)
			continue
		}

		word := tok.Upper()
		if isFromBoundary(word) {
			break
		}

		switch word {
		case "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL", "OUTER":
			join := Join{Kind: JoinInner}
			for i < hi {
				w := p.toks[i].Upper()
				if w == "JOIN" {
					i++
					break
				}
				switch w {
				case "LEFT":
					join.Kind = JoinLeft
				case "RIGHT":
					join.Kind = JoinRight
				case "FULL":
					join.Kind = JoinFull
				case "CROSS":
					join.Kind = JoinCross
				case "NATURAL":
					join.Natural = true
				case "INNER", "OUTER":
					// keep default kind
				default:
					w = ""
				}
				if w == "" {
					break
				}
				i++
			}
			join.Table, i = p.parseFromItem(i, hi)

			if i < hi && p.toks[i].Upper() == "ON" {
				join.HasOn = true
				next := p.onEnd(i+1, hi)
				p.walkPredicates(i+1, next, ClauseOn, &join)
				i = next
			} else if i < hi && p.toks[i].Upper() == "USING" {
				i++
				if i < hi && p.toks[i].Type == TokenLParen {
					close := p.matchParen(i, hi)
					for j := i + 1; j < close; j++ {
						if isIdent(p.toks[j]) {
							join.Using = append(join.Using, p.toks[j].Text)
						}
					}
					i = close + 1
				}
			}
			p.stmt.Joins = append(p.stmt.Joins, join)

		default:
			i++
		}
	}

	if len(group) > 1 {
		p.stmt.CommaGroups = append(p.stmt.CommaGroups, group)
	}
	return i
}

// parseFromItem reads one table expression: a base table, a subquery, a
// VALUES list or a table function, with an optional alias.
func (p *parser) parseFromItem(lo, hi int) (TableRef, int) {
	var ref TableRef
	i := lo

	for i < hi {
		if w := p.toks[i].Upper(); w == "ONLY" || w == "LATERAL" {
			i++
			continue
		}
		break
	}
	if i >= hi {
		return ref, i
	}

	switch {
	case p.toks[i].Type == TokenLParen:
		close := p.matchParen(i, hi)
		if first, ok := p.firstWord(i+1, close); ok && (first == "SELECT" || first == "WITH") {
			p.parseSelectBody(i+1, close)
		} else if first, ok := p.firstWord(i+1, close); ok && first == "VALUES" {
			// literal rows only
		} else {
			// parenthesized join
			p.parseFromClause(i+1, close)
		}
		ref.Derived = true
		i = close + 1

	case isIdent(p.toks[i]):
		name := p.toks[i].Text
		i++
		for i+1 < hi && p.toks[i].Type == TokenDot && isIdent(p.toks[i+1]) {
			name = name + "." + p.toks[i+1].Text
			i += 2
		}
		if i < hi && p.toks[i].Type == TokenLParen {
			// table function such as generate_series(...)
			close := p.matchParen(i, hi)
			p.walkClause(i+1, close, ClauseFrom, false)
			ref.Derived = true
			i = close + 1
		} else {
			ref.Name = strings.TrimPrefix(name, "public.")
		}

	default:
		i++
		return ref, i
	}

	// optional alias, with an optional column alias list
	if i < hi && p.toks[i].Upper() == "AS" {
		i++
	}
	if i < hi && isIdent(p.toks[i]) && !isFromStopword(p.toks[i].Upper()) {
		ref.Alias = p.toks[i].Text
		i++
		if i < hi && p.toks[i].Type == TokenLParen {
			i = p.matchParen(i, hi) + 1
		}
	}

	if ref.Name != "" || ref.Derived {
		p.stmt.Tables = append(p.stmt.Tables, ref)
	}
	return ref, i
}

// onEnd finds where an ON condition stops: the next join keyword, comma, or
// clause boundary at this nesting level.
func (p *parser) onEnd(lo, hi int) int {
	for i := lo; i < hi; i++ {
		switch p.toks[i].Type {
		case TokenLParen:
			i = p.matchParen(i, hi)
		case TokenComma:
			return i
		case TokenWord:
			w := p.toks[i].Upper()
			if isFromBoundary(w) || isJoinIntro(w) {
				return i
			}
		}
	}
	return hi
}

// clauseEnd finds where a top-level clause stops.
func (p *parser) clauseEnd(lo, hi int) int {
	for i := lo; i < hi; i++ {
		switch p.toks[i].Type {
		case TokenLParen:
			i = p.matchParen(i, hi)
		case TokenWord:
			switch p.toks[i].Upper() {
			case "GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET", "FETCH", "WINDOW",
				"UNION", "INTERSECT", "EXCEPT", "FOR", "RETURNING":
				return i
			}
		}
	}
	return hi
}

// subquery reports whether the paren group opening at open wraps a SELECT or
// WITH, returning the inner range and the index after the closing paren.
func (p *parser) subquery(open, hi int) ([2]int, int, bool) {
	close := p.matchParen(open, hi)
	if first, ok := p.firstWord(open+1, close); ok && (first == "SELECT" || first == "WITH") {
		return [2]int{open + 1, close}, close + 1, true
	}
	return [2]int{}, 0, false
}

// matchParen returns the index of the parenthesis closing the one at open.
func (p *parser) matchParen(open, hi int) int {
	depth := 0
	for i := open; i < hi; i++ {
		switch p.toks[i].Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return hi - 1
}

// firstWord returns the uppercased first word token in the range.
func (p *parser) firstWord(lo, hi int) (string, bool) {
	for i := lo; i < hi; i++ {
		if p.toks[i].Type == TokenWord {
			return p.toks[i].Upper(), true
		}
		if p.toks[i].Type != TokenLParen {
			return "", false
		}
	}
	return "", false
}

// skipTypeWords consumes the type name after a :: cast.
func (p *parser) skipTypeWords(i, hi int) int {
	if i < hi && p.toks[i].Type == TokenWord {
		i++
		for i < hi && p.toks[i].Type == TokenWord {
			switch p.toks[i].Upper() {
			case "VARYING", "PRECISION", "ZONE", "WITH", "WITHOUT", "TIME":
				i++
				continue
			}
			break
		}
		// type modifiers such as numeric(10,2)
		if i < hi && p.toks[i].Type == TokenLParen {
			i = p.matchParen(i, hi) + 1
		}
	}
	return i
}

func (p *parser) followedByDot(i, hi int) bool {
	return i+1 < hi && p.toks[i+1].Type == TokenDot
}

func isIdent(t Token) bool {
	return t.Type == TokenWord || t.Type == TokenQuotedIdent
}

func isJoinIntro(w string) bool {
	switch w {
	case "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL":
		return true
	}
	return false
}

func isFromBoundary(w string) bool {
	switch w {
	case "WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET", "FETCH",
		"WINDOW", "UNION", "INTERSECT", "EXCEPT", "FOR", "RETURNING", "INTO":
		return true
	}
	return false
}

func isFromStopword(w string) bool {
	if isFromBoundary(w) || isJoinIntro(w) {
		return true
	}
	switch w {
	case "ON", "USING", "AS", "TABLESAMPLE", "OUTER":
		return true
	}
	return false
}

var nonColumnKeywords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"SELECT", "DISTINCT", "ALL", "AS", "FROM", "WHERE", "GROUP", "BY", "HAVING",
		"ORDER", "LIMIT", "OFFSET", "FETCH", "FIRST", "NEXT", "ROW", "ROWS", "ONLY",
		"JOIN", "INNER", "LEFT", "RIGHT", "FULL", "OUTER", "CROSS", "NATURAL", "LATERAL",
		"ON", "USING", "AND", "OR", "NOT", "IN", "EXISTS", "BETWEEN", "LIKE", "ILIKE",
		"SIMILAR", "TO", "IS", "NULL", "TRUE", "FALSE", "UNKNOWN", "CASE", "WHEN",
		"THEN", "ELSE", "END", "ASC", "DESC", "NULLS", "LAST", "UNION", "INTERSECT",
		"EXCEPT", "WITH", "RECURSIVE", "MATERIALIZED", "OVER", "PARTITION", "WINDOW",
		"FILTER", "WITHIN", "RANGE", "PRECEDING", "FOLLOWING", "UNBOUNDED", "CURRENT",
		"INTO", "FOR", "UPDATE", "SHARE", "KEY", "SKIP", "LOCKED", "NOWAIT", "VALUES",
		"TABLESAMPLE", "ANY", "SOME", "ARRAY", "COLLATE", "AT", "ZONE", "INTERVAL",
		"ESCAPE", "GROUPING", "SETS", "ROLLUP", "CUBE", "ORDINALITY", "VARIADIC",
		"YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND", "QUARTER", "WEEK",
		"DOW", "DOY", "EPOCH", "CENTURY", "DECADE", "ISODOW", "ISOYEAR", "TIMEZONE",
		"INTEGER", "INT", "INT2", "INT4", "INT8", "BIGINT", "SMALLINT", "NUMERIC",
		"DECIMAL", "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "PRECISION",
		"TEXT", "VARCHAR", "CHAR", "CHARACTER", "VARYING", "BOOLEAN", "BOOL",
		"DATE", "TIME", "TIMESTAMP", "TIMESTAMPTZ", "TIMETZ", "UUID", "JSON",
		"JSONB", "BYTEA", "MONEY", "WITHOUT",
		"CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "CURRENT_USER",
		"SESSION_USER", "LOCALTIME", "LOCALTIMESTAMP", "CAST", "EXTRACT",
	} {
		nonColumnKeywords[w] = struct{}{}
	}
}

func isNonColumnKeyword(w string) bool {
	_, ok := nonColumnKeywords[w]
	return ok
}
