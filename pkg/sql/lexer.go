package sql

import (
	"fmt"
	"strings"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	// TokenWord is an unquoted keyword or identifier.
	TokenWord TokenType = iota
	// TokenQuotedIdent is a double-quoted identifier; Text holds the unquoted value.
	TokenQuotedIdent
	// TokenString is a single-quoted or dollar-quoted literal; Text holds the content.
	TokenString
	// TokenNumber is a numeric literal.
	TokenNumber
	// TokenOperator is a single- or multi-character operator such as =, <>, ::, ||.
	TokenOperator
	// TokenStar is the * character, kept separate from operators because of SELECT * and COUNT(*).
	TokenStar
	// TokenComma, TokenDot, TokenLParen, TokenRParen and TokenSemicolon are punctuation.
	TokenComma
	TokenDot
	TokenLParen
	TokenRParen
	TokenSemicolon
	// TokenParam is a positional parameter such as $1.
	TokenParam
)

// Token is one lexical unit of a SQL statement.
type Token struct {
	Type TokenType
	Text string // raw text; quoted identifiers and strings are unquoted
	Pos  int    // byte offset in the input, for error messages
}

// Upper returns the uppercased text for word tokens and "" otherwise, so
// keyword comparison never touches quoted identifiers or literals.
func (t Token) Upper() string {
	if t.Type != TokenWord {
		return ""
	}
	return strings.ToUpper(t.Text)
}

// multi-character operators, longest first so the scan is greedy
var multiCharOperators = []string{
	"!~*", "#>>", "->>",
	"::", "<=", ">=", "<>", "!=", "||", "->", "#>", "@>", "<@", "?|", "?&", "~*", "!~",
}

// Tokenize splits a SQL statement into tokens. Comments and whitespace are
// discarded. It understands PostgreSQL quoting: single-quoted strings with ”
// and \' escapes, double-quoted identifiers, dollar-quoted strings, nested
// block comments and line comments. An unterminated construct is an error.
func Tokenize(input string) ([]Token, error) {
	var toks []Token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '-' && i+1 < n && input[i+1] == '-':
			for i < n && input[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < n && input[i+1] == '*':
			end, err := skipBlockComment(input, i)
			if err != nil {
				return nil, err
			}
			i = end

		case c == '\'':
			text, end, err := scanSingleQuoted(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{Type: TokenString, Text: text, Pos: i})
			i = end

		case c == '"':
			text, end, err := scanDoubleQuoted(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{Type: TokenQuotedIdent, Text: text, Pos: i})
			i = end

		case c == '$':
			tok, end, err := scanDollar(input, i)
			if err != nil {
				return nil, err
			}
			if end > i {
				toks = append(toks, tok)
				i = end
				break
			}
			// lone $ with no tag or digits, treat as an operator character
			toks = append(toks, Token{Type: TokenOperator, Text: "$", Pos: i})
			i++

		case isDigit(c) || (c == '.' && i+1 < n && isDigit(input[i+1])):
			start := i
			i = scanNumber(input, i)
			toks = append(toks, Token{Type: TokenNumber, Text: input[start:i], Pos: start})

		case isWordStart(c):
			start := i
			for i < n && isWordPart(input[i]) {
				i++
			}
			toks = append(toks, Token{Type: TokenWord, Text: input[start:i], Pos: start})

		case c == '*':
			toks = append(toks, Token{Type: TokenStar, Text: "*", Pos: i})
			i++

		case c == ',':
			toks = append(toks, Token{Type: TokenComma, Text: ",", Pos: i})
			i++

		case c == '.':
			toks = append(toks, Token{Type: TokenDot, Text: ".", Pos: i})
			i++

		case c == '(':
			toks = append(toks, Token{Type: TokenLParen, Text: "(", Pos: i})
			i++

		case c == ')':
			toks = append(toks, Token{Type: TokenRParen, Text: ")", Pos: i})
			i++

		case c == ';':
			toks = append(toks, Token{Type: TokenSemicolon, Text: ";", Pos: i})
			i++

		default:
			if op, ok := matchOperator(input, i); ok {
				toks = append(toks, Token{Type: TokenOperator, Text: op, Pos: i})
				i += len(op)
				break
			}
			return nil, fmt.Errorf("unexpected character %q at offset %d", rune(c), i)
		}
	}

	return toks, nil
}

func skipBlockComment(input string, start int) (int, error) {
	depth := 0
	i := start
	n := len(input)
	for i < n {
		if i+1 < n && input[i] == '/' && input[i+1] == '*' {
			depth++
			i += 2
			continue
		}
		if i+1 < n && input[i] == '*' && input[i+1] == '/' {
			depth--
			i += 2
			if depth == 0 {
				return i, nil
			}
			continue
		}
		i++
	}
	return 0, fmt.Errorf("unterminated block comment starting at offset %d", start)
}

func scanSingleQuoted(input string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	n := len(input)
	for i < n {
		c := input[i]
		if c == '\\' && i+1 < n && input[i+1] == '\'' {
			b.WriteByte('\'')
			i += 2
			continue
		}
		if c == '\'' {
			// '' is an escaped quote inside the string
			if i+1 < n && input[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("unterminated string literal starting at offset %d", start)
}

func scanDoubleQuoted(input string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	n := len(input)
	for i < n {
		c := input[i]
		if c == '"' {
			if i+1 < n && input[i+1] == '"' {
				b.WriteByte('"')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("unterminated quoted identifier starting at offset %d", start)
}

// scanDollar handles $1 positional parameters and $tag$...$tag$ strings.
// It returns end == start when the $ introduces neither, so the caller can
// fall back to treating it as an operator.
func scanDollar(input string, start int) (Token, int, error) {
	i := start + 1
	n := len(input)

	if i < n && isDigit(input[i]) {
		for i < n && isDigit(input[i]) {
			i++
		}
		return Token{Type: TokenParam, Text: input[start:i], Pos: start}, i, nil
	}

	// optional tag between the dollars
	j := i
	for j < n && (isWordStart(input[j]) || isDigit(input[j])) {
		j++
	}
	if j >= n || input[j] != '$' {
		return Token{}, start, nil
	}
	delim := input[start : j+1] // $tag$ or $$
	body := j + 1
	end := strings.Index(input[body:], delim)
	if end < 0 {
		return Token{}, 0, fmt.Errorf("unterminated dollar-quoted string starting at offset %d", start)
	}
	return Token{Type: TokenString, Text: input[body : body+end], Pos: start}, body + end + len(delim), nil
}

func scanNumber(input string, start int) int {
	i := start
	n := len(input)
	for i < n && (isDigit(input[i]) || input[i] == '.') {
		i++
	}
	if i < n && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < n && (input[j] == '+' || input[j] == '-') {
			j++
		}
		if j < n && isDigit(input[j]) {
			i = j
			for i < n && isDigit(input[i]) {
				i++
			}
		}
	}
	return i
}

func matchOperator(input string, i int) (string, bool) {
	for _, op := range multiCharOperators {
		if strings.HasPrefix(input[i:], op) {
			return op, true
		}
	}
	switch input[i] {
	case '=', '<', '>', '+', '-', '/', '%', '^', '~', '!', '?', '&', '|', '#', '@', '[', ']', ':':
		return string(input[i]), true
	}
	return "", false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isWordPart(c byte) bool {
	return isWordStart(c) || isDigit(c) || c == '$'
}
