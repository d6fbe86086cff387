package parser

import (
	"fmt"
	"strconv"

	"github.com/finity-lang/finity/internal/lang"
)

// Parse lexes and parses finity source text into a statement list.
func Parse(src string) ([]lang.Stmt, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: tokens}
	return p.program()
}

type parser struct {
	toks []Token
	i    int
}

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) peekN(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) advance() Token {
	t := p.peek()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) match(tt ...TokenType) bool {
	for _, t := range tt {
		if p.peek().Type == t {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) matchKeyword(kw string) bool {
	t := p.peek()
	if t.Type == TokenKeyword && t.Value == kw {
		p.advance()
		return true
	}
	return false
}

func (p *parser) need(t TokenType) (Token, error) {
	got := p.peek()
	if got.Type != t {
		return Token{}, fmt.Errorf("%d:%d: expected %s, got %s", got.Line, got.Col, t, got.Type)
	}
	return p.advance(), nil
}

func (p *parser) program() ([]lang.Stmt, error) {
	var stmts []lang.Stmt
	for p.peek().Type != TokenEOF {
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (p *parser) stmt() (lang.Stmt, error) {
	t := p.peek()
	switch {
	case t.Type == TokenKeyword && (t.Value == "int" || t.Value == "str"):
		return p.decl()
	case t.Type == TokenKeyword && t.Value == "if":
		return p.ifStmt()
	case t.Type == TokenKeyword && t.Value == "while":
		return p.whileStmt()
	case t.Type == TokenKeyword && t.Value == "return":
		p.advance()
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return lang.Return(e), nil
	case t.Type == TokenIdent:
		return p.assign()
	default:
		return nil, fmt.Errorf("%d:%d: unexpected %s at start of statement", t.Line, t.Col, t.Type)
	}
}

// decl parses a domain declaration:
//
//	int[4] x            int domain {0..3}
//	int[4][3] a         array of length 3 over int[4]
//	str{"a","b"} s      finite string domain
func (p *parser) decl() (lang.Stmt, error) {
	kw := p.advance()

	var dom lang.Domain
	switch kw.Value {
	case "int":
		// "int x" without a bound takes the configured default. The
		// sentinel is negative so an explicit int[0] stays an empty
		// domain and is rejected at lowering instead of widened.
		bound := int64(-1)
		if p.peek().Type == TokenLBracket {
			p.advance()
			var err error
			bound, err = p.number()
			if err != nil {
				return nil, err
			}
			if _, err := p.need(TokenRBracket); err != nil {
				return nil, err
			}
		}
		dom = lang.IntDomain{Bound: bound}
	case "str":
		if _, err := p.need(TokenLBrace); err != nil {
			return nil, err
		}
		var members []string
		for {
			s, err := p.need(TokenString)
			if err != nil {
				return nil, err
			}
			members = append(members, s.Value)
			if !p.match(TokenComma) {
				break
			}
		}
		if _, err := p.need(TokenRBrace); err != nil {
			return nil, err
		}
		dom = lang.NewStringDomain(members...)
	}

	// trailing [n] suffixes build nested array domains
	for p.peek().Type == TokenLBracket {
		p.advance()
		length, err := p.number()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(TokenRBracket); err != nil {
			return nil, err
		}
		dom = lang.ArrayDomain{Elem: dom, Length: int(length)}
	}

	name, err := p.need(TokenIdent)
	if err != nil {
		return nil, err
	}

	if p.match(TokenAssign) {
		init, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return lang.DeclInit(name.Value, dom, init), nil
	}
	return lang.Decl(name.Value, dom), nil
}

// assign parses "x = e", "x[i] = e", and "f = (a, b) -> e".
func (p *parser) assign() (lang.Stmt, error) {
	name := p.advance()

	if p.match(TokenLBracket) {
		idx, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(TokenRBracket); err != nil {
			return nil, err
		}
		if _, err := p.need(TokenAssign); err != nil {
			return nil, err
		}
		rhs, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return lang.AssignIndex(name.Value, idx, rhs), nil
	}

	if _, err := p.need(TokenAssign); err != nil {
		return nil, err
	}

	if params, ok := p.tryLambdaParams(); ok {
		body, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return lang.Func(name.Value, params, body), nil
	}

	rhs, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return lang.Assign(name.Value, rhs), nil
}

// tryLambdaParams recognises "( ident, ... ) ->" by lookahead and
// consumes it when present; otherwise the token position is untouched.
func (p *parser) tryLambdaParams() ([]string, bool) {
	if p.peek().Type != TokenLParen {
		return nil, false
	}
	// scan ahead: idents and commas until ')', then '->'
	j := p.i + 1
	for {
		t := p.peekN(j - p.i)
		if t.Type == TokenRParen {
			break
		}
		if t.Type != TokenIdent {
			return nil, false
		}
		j++
		t = p.peekN(j - p.i)
		if t.Type == TokenComma {
			j++
			continue
		}
		if t.Type != TokenRParen {
			return nil, false
		}
	}
	if p.peekN(j-p.i+1).Type != TokenArrow {
		return nil, false
	}

	p.advance() // (
	var params []string
	for p.peek().Type != TokenRParen {
		params = append(params, p.advance().Value)
		p.match(TokenComma)
	}
	p.advance() // )
	p.advance() // ->
	return params, true
}

func (p *parser) ifStmt() (lang.Stmt, error) {
	p.advance() // if
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}
	if !p.matchKeyword("else") {
		return lang.If(cond, then, nil), nil
	}
	if p.peek().Type == TokenKeyword && p.peek().Value == "if" {
		els, err := p.ifStmt()
		if err != nil {
			return nil, err
		}
		return lang.If(cond, then, els), nil
	}
	els, err := p.block()
	if err != nil {
		return nil, err
	}
	return lang.If(cond, then, els), nil
}

func (p *parser) whileStmt() (lang.Stmt, error) {
	p.advance() // while
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return lang.While(cond, body), nil
}

func (p *parser) block() (lang.Stmt, error) {
	if _, err := p.need(TokenLBrace); err != nil {
		return nil, err
	}
	var stmts []lang.Stmt
	for p.peek().Type != TokenRBrace {
		if p.peek().Type == TokenEOF {
			t := p.peek()
			return nil, fmt.Errorf("%d:%d: unterminated block", t.Line, t.Col)
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.advance() // }
	return lang.Block(stmts...), nil
}

// binding powers for precedence climbing
func lbp(t TokenType) (int, lang.BinaryOp, bool) {
	switch t {
	case TokenOr:
		return 1, lang.OpOr, true
	case TokenAnd:
		return 2, lang.OpAnd, true
	case TokenEq:
		return 3, lang.OpEq, true
	case TokenNeq:
		return 3, lang.OpNeq, true
	case TokenLt:
		return 4, lang.OpLt, true
	case TokenLte:
		return 4, lang.OpLte, true
	case TokenGt:
		return 4, lang.OpGt, true
	case TokenGte:
		return 4, lang.OpGte, true
	case TokenPlus:
		return 5, lang.OpAdd, true
	case TokenMinus:
		return 5, lang.OpSub, true
	case TokenStar:
		return 6, lang.OpMul, true
	case TokenSlash:
		return 6, lang.OpDiv, true
	case TokenPercent:
		return 6, lang.OpMod, true
	default:
		return 0, 0, false
	}
}

func (p *parser) expr(minBP int) (lang.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		bp, op, ok := lbp(p.peek().Type)
		if !ok || bp <= minBP {
			return left, nil
		}
		p.advance()
		right, err := p.expr(bp)
		if err != nil {
			return nil, err
		}
		left = lang.Binary(op, left, right)
	}
}

func (p *parser) unary() (lang.Expr, error) {
	switch p.peek().Type {
	case TokenNot:
		p.advance()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return lang.Unary(lang.OpNot, operand), nil
	case TokenMinus:
		p.advance()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return lang.Unary(lang.OpNeg, operand), nil
	}
	return p.postfix()
}

// postfix parses a primary followed by index suffixes.
func (p *parser) postfix() (lang.Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokenLBracket {
		p.advance()
		idx, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(TokenRBracket); err != nil {
			return nil, err
		}
		e = lang.Index(e, idx)
	}
	return e, nil
}

func (p *parser) primary() (lang.Expr, error) {
	t := p.peek()
	switch t.Type {
	case TokenNumber:
		p.advance()
		n, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%d:%d: bad number %q", t.Line, t.Col, t.Value)
		}
		return lang.IntLit(n), nil

	case TokenString:
		p.advance()
		return lang.StrLit(t.Value), nil

	case TokenIdent:
		p.advance()
		if p.peek().Type != TokenLParen {
			return lang.Var(t.Value), nil
		}
		p.advance() // (
		var args []lang.Expr
		for p.peek().Type != TokenRParen {
			a, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.match(TokenComma) {
				break
			}
		}
		if _, err := p.need(TokenRParen); err != nil {
			return nil, err
		}
		return lang.Call(t.Value, args...), nil

	case TokenLParen:
		p.advance()
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(TokenRParen); err != nil {
			return nil, err
		}
		return e, nil

	case TokenLBracket:
		p.advance()
		var elems []lang.Expr
		for p.peek().Type != TokenRBracket {
			e, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.match(TokenComma) {
				break
			}
		}
		if _, err := p.need(TokenRBracket); err != nil {
			return nil, err
		}
		return lang.ArrayExpr{Elems: elems}, nil

	default:
		return nil, fmt.Errorf("%d:%d: unexpected %s in expression", t.Line, t.Col, t.Type)
	}
}

func (p *parser) number() (int64, error) {
	t, err := p.need(TokenNumber)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(t.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%d:%d: bad number %q", t.Line, t.Col, t.Value)
	}
	return n, nil
}
