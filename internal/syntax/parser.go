// Copyright (c) 2026 The Kestrel Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package syntax

import (
	"fmt"
	"io"
	"strconv"

	"github.com/golang/glog"
)

// Parser is a one-token-lookahead recursive-descent parser, shaped like
// the teacher's ast.Parser: a lexer plus a current (token, lexeme) pair
// advanced by consume().
type Parser struct {
	lexer  *Lexer
	token  TokenKind
	lexeme string
	pos    Pos
	trace  bool
}

// NewParser constructs a parser reading from r.
func NewParser(fileName string, r io.Reader, trace bool) *Parser {
	p := &Parser{lexer: NewLexer(fileName, r), trace: trace}
	p.consume()
	return p
}

func (p *Parser) consume() {
	p.pos = p.lexer.Pos()
	p.token, p.lexeme = p.lexer.NextToken()
	if p.trace {
		glog.V(1).Infof("parse: token %v %q at %s", p.token, p.lexeme, p.pos)
	}
}

func (p *Parser) fail(format string, args ...interface{}) {
	panic(fmt.Sprintf("%s: syntax error: %s", p.pos, fmt.Sprintf(format, args...)))
}

func (p *Parser) expect(kind TokenKind) string {
	if p.token != kind {
		p.fail("expected %v but found %v %q", kind, p.token, p.lexeme)
	}
	lexeme := p.lexeme
	p.consume()
	return lexeme
}

// ParseProgram parses a whole source file into a Program.
func ParseProgram(fileName string, r io.Reader, trace bool) (prog *Program, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	p := NewParser(fileName, r, trace)
	p.expect(KwProgram)
	name := p.expect(TkIdent)
	p.expect(TkSemicolon)
	body := p.parseBlock()
	p.expect(TkDot)
	return &Program{Name: name, Body: body}, nil
}

// parseBlock parses `const ... type ... var ... <nested callables> begin
// ... end` (the top-level omits the enclosing begin/end's trailing dot,
// which ParseProgram consumes).
func (p *Parser) parseBlock() *Block {
	b := &Block{}
	if p.token == KwConst {
		p.consume()
		for p.token == TkIdent {
			name := p.lexeme
			pos := p.pos
			p.consume()
			p.expect(TkEqual)
			lit := p.parseLiteralText()
			p.expect(TkSemicolon)
			b.Constants = append(b.Constants, &Constant{Name: name, Literal: lit, Pos: pos})
		}
	}
	if p.token == KwType {
		p.consume()
		for p.token == TkIdent {
			name := p.lexeme
			pos := p.pos
			p.consume()
			p.expect(TkEqual)
			typ := p.parseType()
			p.expect(TkSemicolon)
			b.TypeAliases = append(b.TypeAliases, &TypeAlias{Name: name, Type: typ, Pos: pos})
		}
	}
	if p.token == KwVar {
		p.consume()
		for p.token == TkIdent {
			names := []string{p.expect(TkIdent)}
			for p.token == TkComma {
				p.consume()
				names = append(names, p.expect(TkIdent))
			}
			pos := p.pos
			p.expect(TkColon)
			typ := p.parseType()
			p.expect(TkSemicolon)
			for _, n := range names {
				b.Variables = append(b.Variables, &Variable{Name: n, Type: typ, Pos: pos})
			}
		}
	}
	for p.token == KwFunction || p.token == KwProcedure {
		b.Callables = append(b.Callables, p.parseCallable())
	}
	b.Body = p.parseCompound()
	return b
}

func (p *Parser) parseLiteralText() string {
	switch p.token {
	case LitInt, LitDouble:
		lit := p.lexeme
		p.consume()
		return lit
	case LitString:
		lit := "'" + p.lexeme + "'"
		p.consume()
		return lit
	case TkMinus:
		p.consume()
		return "-" + p.parseLiteralText()
	default:
		p.fail("expected a constant literal, found %v %q", p.token, p.lexeme)
		return ""
	}
}

func (p *Parser) parseCallable() *Callable {
	isFunc := p.token == KwFunction
	pos := p.pos
	p.consume()
	name := p.expect(TkIdent)
	var params []*Param
	if p.token == TkLParen {
		p.consume()
		for p.token != TkRParen {
			byRef := false
			if p.token == KwVar {
				byRef = true
				p.consume()
			}
			names := []string{p.expect(TkIdent)}
			for p.token == TkComma {
				p.consume()
				names = append(names, p.expect(TkIdent))
			}
			p.expect(TkColon)
			typ := p.parseType()
			for _, n := range names {
				params = append(params, &Param{Name: n, Type: typ, ByReference: byRef})
			}
			if p.token == TkSemicolon {
				p.consume()
			}
		}
		p.expect(TkRParen)
	}
	var retType Type
	if isFunc {
		p.expect(TkColon)
		retType = p.parseType()
	}
	p.expect(TkSemicolon)
	body := p.parseBlock()
	p.expect(TkSemicolon)
	return &Callable{Name: name, Params: params, ReturnType: retType, Body: body, Pos: pos}
}

// ---------------------------------------------------------------------------
// Types

func (p *Parser) parseType() Type {
	pos := p.pos
	switch p.token {
	case TkIdent:
		name := p.lexeme
		p.consume()
		return &TypeIdentifier{Name: name, Pos: pos}
	case KwArray:
		p.consume()
		p.expect(TkLBracket)
		var bounds []ArrayBound
		for {
			min := p.parseIntLiteral()
			p.expect(TkDot)
			p.expect(TkDot)
			max := p.parseIntLiteral()
			bounds = append(bounds, ArrayBound{Min: min, Max: max})
			if p.token == TkComma {
				p.consume()
				continue
			}
			break
		}
		p.expect(TkRBracket)
		p.expect(KwOf)
		elem := p.parseType()
		return &ArraySchema{Bounds: bounds, ElementType: elem, Pos: pos}
	case KwRecord:
		p.consume()
		var fields []RecordField
		for p.token != KwEnd {
			names := []string{p.expect(TkIdent)}
			for p.token == TkComma {
				p.consume()
				names = append(names, p.expect(TkIdent))
			}
			p.expect(TkColon)
			typ := p.parseType()
			p.expect(TkSemicolon)
			for _, n := range names {
				fields = append(fields, RecordField{Name: n, Type: typ})
			}
		}
		p.expect(KwEnd)
		return &RecordType{Fields: fields, Pos: pos}
	case TkCaret:
		p.consume()
		base := p.parseType()
		return &PointerType{Base: base, Pos: pos}
	default:
		p.fail("expected a type, found %v %q", p.token, p.lexeme)
		return nil
	}
}

func (p *Parser) parseIntLiteral() int64 {
	neg := false
	if p.token == TkMinus {
		neg = true
		p.consume()
	}
	if p.token != LitInt {
		p.fail("expected an integer literal, found %v %q", p.token, p.lexeme)
	}
	v := parseIntText(p.lexeme)
	p.consume()
	if neg {
		return -v
	}
	return v
}

func parseIntText(lexeme string) int64 {
	v, err := strconv.ParseInt(lexeme, 0, 64)
	if err != nil {
		panic(err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Statements

func (p *Parser) parseCompound() Statement {
	p.expect(KwBegin)
	var stmts []Statement
	for p.token != KwEnd {
		stmts = append(stmts, p.parseStatement())
		if p.token == TkSemicolon {
			p.consume()
		} else {
			break
		}
	}
	p.expect(KwEnd)
	return &CompoundStatement{Statements: stmts}
}

func (p *Parser) parseStatement() Statement {
	pos := p.pos
	switch p.token {
	case KwBegin:
		return p.parseCompound()
	case KwIf:
		p.consume()
		cond := p.parseExpr()
		p.expect(KwThen)
		then := p.parseStatement()
		var els Statement
		if p.token == KwElse {
			p.consume()
			els = p.parseStatement()
		}
		return &IfStatement{Cond: cond, Then: then, Else: els, Pos: pos}
	case KwWhile:
		p.consume()
		cond := p.parseExpr()
		p.expect(KwDo)
		body := p.parseStatement()
		return &WhileStatement{Cond: cond, Body: body, Pos: pos}
	case KwRepeat:
		p.consume()
		var stmts []Statement
		for p.token != KwUntil {
			stmts = append(stmts, p.parseStatement())
			if p.token == TkSemicolon {
				p.consume()
			} else {
				break
			}
		}
		p.expect(KwUntil)
		cond := p.parseExpr()
		return &RepeatStatement{Body: &CompoundStatement{Statements: stmts}, Cond: cond, Pos: pos}
	case KwFor:
		p.consume()
		varName := p.expect(TkIdent)
		p.expect(TkAssign)
		initial := p.parseExpr()
		dir := ForUp
		switch p.token {
		case KwTo:
			dir = ForUp
		case KwDownto:
			dir = ForDown
		default:
			p.fail("expected 'to' or 'downto', found %v %q", p.token, p.lexeme)
		}
		p.consume()
		final := p.parseExpr()
		p.expect(KwDo)
		body := p.parseStatement()
		return &ForStatement{Var: varName, Initial: initial, Direction: dir, Final: final, Body: body, Pos: pos}
	case TkSemicolon, KwEnd, KwUntil:
		return &EmptyStatement{}
	case TkIdent:
		return p.parseSimpleStatement()
	default:
		p.fail("expected a statement, found %v %q", p.token, p.lexeme)
		return nil
	}
}

// parseSimpleStatement disambiguates assignment, explicit calls (with or
// without arguments), and discarded-value expression statements, all of
// which start with an identifier.
func (p *Parser) parseSimpleStatement() Statement {
	pos := p.pos
	name := p.expect(TkIdent)
	if p.token == TkLParen {
		p.consume()
		var args []Expression
		for p.token != TkRParen {
			args = append(args, p.parseExpr())
			if p.token == TkComma {
				p.consume()
			}
		}
		p.expect(TkRParen)
		return &ExplicitCallStatement{Name: name, Args: args, Pos: pos}
	}
	var lv MaybeLValue = &Identifier{Name: name, Pos: pos}
	lv = p.parsePostfix(lv).(MaybeLValue)
	switch p.token {
	case TkAssign:
		p.consume()
		rhs := p.parseExpr()
		return &AssignStatement{LHS: lv, RHS: rhs, Pos: pos}
	default:
		if ident, ok := lv.(*Identifier); ok {
			return &ExplicitCallStatement{Name: ident.Name, Pos: pos}
		}
		return &ExpressionStatement{Expr: lv, Pos: pos}
	}
}

// ---------------------------------------------------------------------------
// Expressions — precedence-climbing over the operator set in spec.md §3.

func (p *Parser) parseExpr() Expression { return p.parseRelational() }

func (p *Parser) parseRelational() Expression {
	lhs := p.parseAdditive()
	for {
		var op BinaryOperator
		switch p.token {
		case TkEqual:
			op = OpEqual
		case TkNotEqual:
			op = OpNotEqual
		case TkLess:
			op = OpLessThan
		case TkGreater:
			op = OpGreaterThan
		case TkLessEqual:
			op = OpLessOrEqual
		case TkGreaterEqual:
			op = OpGreaterOrEqual
		default:
			return lhs
		}
		pos := p.pos
		p.consume()
		rhs := p.parseAdditive()
		lhs = &BinaryOp{LHS: lhs, Op: op, RHS: rhs, Pos: pos}
	}
}

func (p *Parser) parseAdditive() Expression {
	lhs := p.parseMultiplicative()
	for {
		var op BinaryOperator
		switch p.token {
		case TkPlus:
			op = OpPlus
		case TkMinus:
			op = OpMinus
		case KwOr:
			op = OpOr
		case KwXor:
			op = OpXor
		default:
			return lhs
		}
		pos := p.pos
		p.consume()
		rhs := p.parseMultiplicative()
		lhs = &BinaryOp{LHS: lhs, Op: op, RHS: rhs, Pos: pos}
	}
}

func (p *Parser) parseMultiplicative() Expression {
	lhs := p.parseUnary()
	for {
		var op BinaryOperator
		switch p.token {
		case TkTimes:
			op = OpTimes
		case TkSlash:
			op = OpSlash
		case KwDiv:
			op = OpDiv
		case KwMod:
			op = OpMod
		case KwAnd:
			op = OpAnd
		case TkLShift:
			op = OpLeftShift
		case TkRShift:
			op = OpRightShift
		default:
			return lhs
		}
		pos := p.pos
		p.consume()
		rhs := p.parseUnary()
		lhs = &BinaryOp{LHS: lhs, Op: op, RHS: rhs, Pos: pos}
	}
}

func (p *Parser) parseUnary() Expression {
	pos := p.pos
	switch p.token {
	case KwNot:
		p.consume()
		return &UnaryOp{Op: OpNot, Operand: p.parseUnary(), Pos: pos}
	case TkPlus:
		p.consume()
		return &UnaryOp{Op: OpUnaryPlus, Operand: p.parseUnary(), Pos: pos}
	case TkMinus:
		p.consume()
		return &UnaryOp{Op: OpUnaryMinus, Operand: p.parseUnary(), Pos: pos}
	case TkAt:
		p.consume()
		operand := p.parseUnary()
		lv, ok := operand.(MaybeLValue)
		if !ok {
			p.fail("'@' requires an l-value operand")
		}
		return &UnaryOp{Op: OpAt, Operand: lv, Pos: pos}
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() Expression {
	pos := p.pos
	switch p.token {
	case LitInt, LitDouble:
		lit := p.lexeme
		p.consume()
		return &ConstantLiteral{Literal: lit, Pos: pos}
	case LitString:
		lit := "'" + p.lexeme + "'"
		p.consume()
		return &ConstantLiteral{Literal: lit, Pos: pos}
	case TkLParen:
		p.consume()
		e := p.parseExpr()
		p.expect(TkRParen)
		return e
	case TkIdent:
		name := p.expect(TkIdent)
		if p.token == TkLParen {
			p.consume()
			var args []Expression
			for p.token != TkRParen {
				args = append(args, p.parseExpr())
				if p.token == TkComma {
					p.consume()
				}
			}
			p.expect(TkRParen)
			return &CallWithArguments{Name: name, Args: args, Pos: pos}
		}
		var lv MaybeLValue = &Identifier{Name: name, Pos: pos}
		return p.parsePostfix(lv)
	default:
		p.fail("expected an expression, found %v %q", p.token, p.lexeme)
		return nil
	}
}

// parsePostfix consumes a chain of `.field`, `[index,...]`, and `^`
// suffixes onto an l-value base.
func (p *Parser) parsePostfix(lv MaybeLValue) Expression {
	for {
		pos := p.pos
		switch p.token {
		case TkDot:
			p.consume()
			field := p.expect(TkIdent)
			lv = &RecordAccess{LV: lv, Field: field, Pos: pos}
		case TkLBracket:
			p.consume()
			var idx []Expression
			idx = append(idx, p.parseExpr())
			for p.token == TkComma {
				p.consume()
				idx = append(idx, p.parseExpr())
			}
			p.expect(TkRBracket)
			lv = &ArrayAccess{LV: lv, Index: idx, Pos: pos}
		case TkCaret:
			p.consume()
			lv = &PointerDereference{Operand: lv, Pos: pos}
		default:
			return lv
		}
	}
}
