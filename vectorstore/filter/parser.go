package filter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse reads a filter expression in a SQL-WHERE-like text form, e.g.
//
//	country == 'BG' && year >= 2020
//	genre in ['comedy', 'drama'] || !(rating < 4.5)
//
// Keywords AND/OR/NOT/IN/NIN are case-insensitive; && / || / ! are accepted
// as synonyms. Precedence is NOT, then AND, then OR.
func Parse(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		t := p.peek()
		return nil, p.errorf(t.pos, "unexpected %q", t.text)
	}
	return expr, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokOp      // == != > >= < <=
	tokAnd     // && or AND
	tokOr      // || or OR
	tokNot     // ! or NOT
	tokIn      // in
	tokNin     // nin
	tokLParen  // (
	tokRParen  // )
	tokLBrack  // [
	tokRBrack  // ]
	tokComma   // ,
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	n := len(input)
	for i < n {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '[':
			toks = append(toks, token{tokLBrack, "[", i})
			i++
		case c == ']':
			toks = append(toks, token{tokRBrack, "]", i})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case c == '\'' || c == '"':
			s, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, s, i})
			i = next
		case c == '=' || c == '!' || c == '<' || c == '>':
			op, next, err := lexOperator(input, i)
			if err != nil {
				return nil, err
			}
			if op == "!" {
				toks = append(toks, token{tokNot, op, i})
			} else {
				toks = append(toks, token{tokOp, op, i})
			}
			i = next
		case c == '&':
			if i+1 < n && input[i+1] == '&' {
				toks = append(toks, token{tokAnd, "&&", i})
				i += 2
			} else {
				return nil, fmt.Errorf("filter: position %d: expected &&", i)
			}
		case c == '|':
			if i+1 < n && input[i+1] == '|' {
				toks = append(toks, token{tokOr, "||", i})
				i += 2
			} else {
				return nil, fmt.Errorf("filter: position %d: expected ||", i)
			}
		case c == '-' || (c >= '0' && c <= '9'):
			num, next := lexNumber(input, i)
			toks = append(toks, token{tokNumber, num, i})
			i = next
		case isIdentStart(rune(c)):
			word, next := lexIdent(input, i)
			switch strings.ToUpper(word) {
			case "AND":
				toks = append(toks, token{tokAnd, word, i})
			case "OR":
				toks = append(toks, token{tokOr, word, i})
			case "NOT":
				toks = append(toks, token{tokNot, word, i})
			case "IN":
				toks = append(toks, token{tokIn, word, i})
			case "NIN":
				toks = append(toks, token{tokNin, word, i})
			case "TRUE", "FALSE":
				toks = append(toks, token{tokBool, strings.ToLower(word), i})
			default:
				toks = append(toks, token{tokIdent, word, i})
			}
			i = next
		default:
			return nil, fmt.Errorf("filter: position %d: unexpected character %q", i, string(c))
		}
	}
	return toks, nil
}

func lexString(input string, start int) (string, int, error) {
	quote := input[start]
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		if c == '\\' && i+1 < len(input) {
			b.WriteByte(input[i+1])
			i += 2
			continue
		}
		if c == quote {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("filter: position %d: unterminated string", start)
}

func lexOperator(input string, start int) (string, int, error) {
	c := input[start]
	twoChar := start+1 < len(input) && input[start+1] == '='
	switch c {
	case '=':
		if !twoChar {
			return "", 0, fmt.Errorf("filter: position %d: expected ==", start)
		}
		return "==", start + 2, nil
	case '!':
		if twoChar {
			return "!=", start + 2, nil
		}
		return "!", start + 1, nil
	case '<':
		if twoChar {
			return "<=", start + 2, nil
		}
		return "<", start + 1, nil
	case '>':
		if twoChar {
			return ">=", start + 2, nil
		}
		return ">", start + 1, nil
	}
	return "", 0, fmt.Errorf("filter: position %d: bad operator", start)
}

func lexNumber(input string, start int) (string, int) {
	i := start
	if input[i] == '-' {
		i++
	}
	for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
		i++
	}
	return input[start:i], i
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func lexIdent(input string, start int) (string, int) {
	i := start
	for i < len(input) {
		r := rune(input[i])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			i++
			continue
		}
		break
	}
	return input[start:i], i
}

type parser struct {
	input string
	toks  []token
	pos   int
}

func (p *parser) atEnd() bool   { return p.pos >= len(p.toks) }
func (p *parser) peek() token   { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return fmt.Errorf("filter: position %d: %s", pos, fmt.Sprintf(format, args...))
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for !p.atEnd() && p.peek().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for !p.atEnd() && p.peek().kind == tokAnd {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.atEnd() {
		return nil, p.errorf(len(p.input), "unexpected end of expression")
	}
	t := p.peek()
	switch t.kind {
	case tokNot:
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NotExpr{Inner: inner}, nil
	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.atEnd() || p.peek().kind != tokRParen {
			return nil, p.errorf(t.pos, "unclosed parenthesis")
		}
		p.advance()
		return Group{Inner: inner}, nil
	case tokIdent, tokString:
		return p.parseComparison()
	}
	return nil, p.errorf(t.pos, "unexpected %q", t.text)
}

func (p *parser) parseComparison() (Expr, error) {
	key := p.advance()

	if p.atEnd() {
		return nil, p.errorf(len(p.input), "expected operator after %q", key.text)
	}
	op := p.advance()
	switch op.kind {
	case tokOp:
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return Cmp{Op: compareOp(op.text), Key: key.text, Value: val}, nil
	case tokIn:
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return Cmp{Op: OpIn, Key: key.text, Value: list}, nil
	case tokNin:
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return Cmp{Op: OpNin, Key: key.text, Value: list}, nil
	case tokNot:
		// "key not in [...]"
		if p.atEnd() || p.peek().kind != tokIn {
			return nil, p.errorf(op.pos, "expected 'in' after 'not'")
		}
		p.advance()
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return Cmp{Op: OpNin, Key: key.text, Value: list}, nil
	}
	return nil, p.errorf(op.pos, "expected comparison operator, got %q", op.text)
}

func compareOp(text string) Op {
	switch text {
	case "==":
		return OpEq
	case "!=":
		return OpNe
	case ">":
		return OpGt
	case ">=":
		return OpGte
	case "<":
		return OpLt
	case "<=":
		return OpLte
	}
	return Op(text)
}

func (p *parser) parseValue() (any, error) {
	if p.atEnd() {
		return nil, p.errorf(len(p.input), "expected value")
	}
	t := p.advance()
	switch t.kind {
	case tokString:
		return t.text, nil
	case tokNumber:
		if strings.ContainsRune(t.text, '.') {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, p.errorf(t.pos, "bad number %q", t.text)
			}
			return f, nil
		}
		i, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf(t.pos, "bad number %q", t.text)
		}
		return i, nil
	case tokBool:
		return t.text == "true", nil
	case tokIdent:
		// Bare words act as unquoted string literals, matching the lenient
		// text form "country == BG".
		return t.text, nil
	case tokLBrack:
		p.pos--
		return nil, p.errorf(t.pos, "list is only valid with in/nin")
	}
	return nil, p.errorf(t.pos, "expected value, got %q", t.text)
}

func (p *parser) parseList() ([]any, error) {
	if p.atEnd() || p.peek().kind != tokLBrack {
		pos := len(p.input)
		if !p.atEnd() {
			pos = p.peek().pos
		}
		return nil, p.errorf(pos, "expected '['")
	}
	open := p.advance()

	var out []any
	for {
		if p.atEnd() {
			return nil, p.errorf(open.pos, "unclosed list")
		}
		if p.peek().kind == tokRBrack {
			p.advance()
			return out, nil
		}
		if len(out) > 0 {
			if p.peek().kind != tokComma {
				return nil, p.errorf(p.peek().pos, "expected ',' in list")
			}
			p.advance()
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}
