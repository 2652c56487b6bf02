// Copyright 2025 ccarm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"strconv"
	"strings"

	"github.com/gorse-io/ccarm/internal/ast"
	"github.com/gorse-io/ccarm/internal/token"
)

// parseCommaExpr parses the comma operator, only reachable where the
// caller's precedence floor allows it (§4.3 precedence ladder, lowest:
// comma "only permitted when called with a statement precedence floor").
func (p *Parser) parseCommaExpr() (ast.Expr, error) {
	lhs, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	for p.check(",") {
		pos := p.advance().Offset
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binary{ExprBase: ast.ExprBase{Pos: pos}, Op: ",", Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

var compoundAssignOps = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
	"&=": "&", "|=": "|", "^=": "^", "<<=": "<<", ">>=": ">>",
}

// parseAssign parses assignment (right-assoc, lowest above comma).
// Compound assignment desugars at parse time to `x = x op e` (§4.3).
func (p *Parser) parseAssign() (ast.Expr, error) {
	lhs, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.Kind != token.Op {
		return lhs, nil
	}
	if tok.Lexeme == "=" {
		pos := p.advance().Offset
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{ExprBase: ast.ExprBase{Pos: pos}, Target: lhs, Rhs: rhs}, nil
	}
	if op, ok := compoundAssignOps[tok.Lexeme]; ok {
		pos := p.advance().Offset
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		desugared := &ast.Binary{ExprBase: ast.ExprBase{Pos: pos}, Op: op, Lhs: lhs, Rhs: rhs}
		return &ast.Assign{ExprBase: ast.ExprBase{Pos: pos}, Target: lhs, Rhs: desugared}, nil
	}
	return lhs, nil
}

// parseTernary parses `cond ? then : else` (right-assoc).
func (p *Parser) parseTernary() (ast.Expr, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.check("?") {
		return cond, nil
	}
	pos := p.advance().Offset
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{ExprBase: ast.ExprBase{Pos: pos}, Cond: cond, Then: then, Else: els}, nil
}

// binaryLevels is the precedence ladder, low to high (§4.3). Each level's
// operator set is tried left-to-right; a match recurses into the next
// tighter level for its right operand.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *Parser) parseBinary(level int) (ast.Expr, error) {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}
	lhs, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Kind != token.Op || !contains(binaryLevels[level], tok.Lexeme) {
			return lhs, nil
		}
		pos := p.advance().Offset
		rhs, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binary{ExprBase: ast.ExprBase{Pos: pos}, Op: tok.Lexeme, Lhs: lhs, Rhs: rhs}
	}
}

func contains(set []string, s string) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

var unaryPrefixOps = map[string]bool{
	"!": true, "-": true, "+": true, "~": true, "*": true, "&": true,
}

// parseUnary parses prefix unary operators, prefix ++/--, casts, and
// sizeof, falling through to postfix/primary (§4.3 precedence ladder).
func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.peek()
	if tok.Kind == token.Keyword && tok.Lexeme == "sizeof" {
		return p.parseSizeof()
	}
	if tok.Kind == token.Op && (tok.Lexeme == "++" || tok.Lexeme == "--") {
		pos := p.advance().Offset
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// prefix ++/-- desugars to `operand = operand + 1`.
		op := "+"
		if tok.Lexeme == "--" {
			op = "-"
		}
		rhs := &ast.Binary{ExprBase: ast.ExprBase{Pos: pos}, Op: op, Lhs: operand, Rhs: &ast.Num{ExprBase: ast.ExprBase{Pos: pos}, Value: 1}}
		return &ast.Assign{ExprBase: ast.ExprBase{Pos: pos}, Target: operand, Rhs: rhs}, nil
	}
	if tok.Kind == token.Op && unaryPrefixOps[tok.Lexeme] {
		pos := p.advance().Offset
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{ExprBase: ast.ExprBase{Pos: pos}, Op: tok.Lexeme, Rhs: rhs}, nil
	}
	return p.parseCastOrPostfix()
}

// parseSizeof constant-folds `sizeof(type)` / `sizeof expr` to a Num
// immediately (§9: sizeof is 8 for all non-char scalars, 1 for char; no
// Sizeof node exists in the AST entity list, §3).
func (p *Parser) parseSizeof() (ast.Expr, error) {
	pos := p.advance().Offset // consume `sizeof`
	if p.check("(") && p.isTypeStart(p.peekAt(1)) {
		p.advance()
		spec, err := p.parseBaseType()
		if err != nil {
			return nil, err
		}
		ptrDepth := p.parsePointerStars()
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return &ast.Num{ExprBase: ast.ExprBase{Pos: pos}, Value: int64(p.sizeofType(spec, ptrDepth))}, nil
	}
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.Num{ExprBase: ast.ExprBase{Pos: pos}, Value: int64(p.sizeofExpr(operand))}, nil
}

// sizeofType computes sizeof(type) per §9's documented simplification.
func (p *Parser) sizeofType(spec declSpec, ptrDepth int) int {
	if ptrDepth > 0 {
		return 8
	}
	switch spec.Kind {
	case ast.Char:
		if spec.IsChar {
			return 1
		}
		return 8
	case ast.Void:
		return 0
	case ast.Struct, ast.Union:
		if def, ok := p.structDefs[spec.StructTag]; ok {
			return def.SlotCount() * 8
		}
		return 8
	default:
		return 8
	}
}

// sizeofExpr computes sizeof(expr), defaulting to 8 when the operand's
// exact type is unknown (§4.3 "Case values... sizeof(expr) defaulting to 8
// where exact type is unknown").
func (p *Parser) sizeofExpr(e ast.Expr) int {
	v, ok := e.(*ast.Var)
	if !ok {
		return 8
	}
	if li, ok := p.locals[v.Name]; ok {
		if li.ArrayLen >= 0 {
			if li.StructTag != "" {
				if def, ok := p.structDefs[li.StructTag]; ok {
					return def.SlotCount() * 8 * li.ArrayLen
				}
			}
			return li.ArrayLen * 8
		}
		if li.StructTag != "" && li.PtrDepth == 0 {
			if def, ok := p.structDefs[li.StructTag]; ok {
				return def.SlotCount() * 8
			}
		}
		return 8
	}
	if g, ok := p.prog.GlobalByName(v.Name); ok {
		if g.ArrayLen >= 0 {
			return g.ArrayLen * 8
		}
		if g.StructTag != "" && g.PtrDepth == 0 {
			if def, ok := p.structDefs[g.StructTag]; ok {
				return def.SlotCount() * 8
			}
		}
	}
	return 8
}

// parseCastOrPostfix resolves the `(` ambiguity: a type specifier after
// `(` is a cast (possibly a compound literal if `{` follows); anything
// else is a parenthesized expression fed into the postfix loop (§4.3
// "Ambiguity resolution").
func (p *Parser) parseCastOrPostfix() (ast.Expr, error) {
	if p.check("(") && p.isTypeStart(p.peekAt(1)) {
		pos := p.peek().Offset
		p.advance()
		spec, err := p.parseBaseType()
		if err != nil {
			return nil, err
		}
		ptrDepth := p.parsePointerStars()
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		// Cast.StructTag is set whenever the target names a struct/union,
		// regardless of pointer depth: codegen treats a struct-tagged cast
		// used in pointer-arithmetic context as pointer-to-struct (a bare
		// struct value can't participate in + - anyway), and field
		// resolution needs the tag for both `(S)x.f` and `((S*)x)->f`.
		tag := ""
		if spec.Kind == ast.Struct || spec.Kind == ast.Union {
			tag = spec.StructTag
		}
		if p.check("{") && ptrDepth == 0 {
			init, err := p.parseInitList()
			if err != nil {
				return nil, err
			}
			return p.parsePostfixLoop(&ast.CompoundLit{ExprBase: ast.ExprBase{Pos: pos}, StructTag: tag, Init: init})
		}
		if tag != "" {
			p.lastCastTag = tag
		}
		x, err := p.parseCastOrPostfix()
		if err != nil {
			return nil, err
		}
		return &ast.Cast{ExprBase: ast.ExprBase{Pos: pos}, StructTag: tag, X: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by zero or more
// postfix operators: [] . -> () ++ -- (§4.3 precedence ladder).
func (p *Parser) parsePostfix() (ast.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfixLoop(base)
}

func (p *Parser) parsePostfixLoop(base ast.Expr) (ast.Expr, error) {
	for {
		tok := p.peek()
		switch {
		case tok.Is("["):
			pos := p.advance().Offset
			idx, err := p.parseCommaExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			base = &ast.Index{ExprBase: ast.ExprBase{Pos: pos}, Base: base, Index: idx}
		case tok.Is("."):
			pos := p.advance().Offset
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			base = &ast.Field{ExprBase: ast.ExprBase{Pos: pos}, Obj: base, FieldName: name, StructTag: p.resolveStructTag(base)}
		case tok.Is("->"):
			pos := p.advance().Offset
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			base = &ast.Arrow{ExprBase: ast.ExprBase{Pos: pos}, Obj: base, FieldName: name, StructTag: p.resolveStructTag(base)}
		case tok.Is("("):
			pos := p.advance().Offset
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if v, ok := base.(*ast.Var); ok {
				base = &ast.Call{ExprBase: ast.ExprBase{Pos: pos}, Name: v.Name, Args: args}
			} else {
				base = &ast.Call{ExprBase: ast.ExprBase{Pos: pos}, Name: ast.IndirectCallName, Args: append([]ast.Expr{base}, args...)}
			}
		case tok.Is("++"):
			pos := p.advance().Offset
			base = &ast.PostInc{ExprBase: ast.ExprBase{Pos: pos}, Operand: base}
		case tok.Is("--"):
			pos := p.advance().Offset
			base = &ast.PostDec{ExprBase: ast.ExprBase{Pos: pos}, Operand: base}
		default:
			return base, nil
		}
	}
}

// resolveStructTag resolves the struct tag of a `.`/`->` operand, in the
// order documented by §4.3 "Struct-type resolution on field access": local
// table, global table, previous field's embedded struct type, previous
// call's return struct type, most recent cast's struct type. Falls back to
// the sentinel when none apply (§3 invariant 1).
func (p *Parser) resolveStructTag(obj ast.Expr) string {
	switch v := obj.(type) {
	case *ast.Var:
		if li, ok := p.locals[v.Name]; ok && li.StructTag != "" {
			return li.StructTag
		}
		if g, ok := p.prog.GlobalByName(v.Name); ok && g.StructTag != "" {
			return g.StructTag
		}
	case *ast.Field:
		if v.StructTag != "" && v.StructTag != ast.UnknownStructTag {
			if def, ok := p.structDefs[v.StructTag]; ok {
				if f, ok := def.FieldByName(v.FieldName); ok && f.EmbeddedTag != "" {
					return f.EmbeddedTag
				}
				if f, ok := def.FieldByName(v.FieldName); ok && f.PtrToStructTag != "" {
					return f.PtrToStructTag
				}
			}
		}
	case *ast.Arrow:
		if v.StructTag != "" && v.StructTag != ast.UnknownStructTag {
			if def, ok := p.structDefs[v.StructTag]; ok {
				if f, ok := def.FieldByName(v.FieldName); ok && f.EmbeddedTag != "" {
					return f.EmbeddedTag
				}
				if f, ok := def.FieldByName(v.FieldName); ok && f.PtrToStructTag != "" {
					return f.PtrToStructTag
				}
			}
		}
	case *ast.Call:
		if ri, ok := p.funcRet[v.Name]; ok && ri.StructTag != "" {
			return ri.StructTag
		}
	case *ast.Index:
		return p.resolveStructTag(v.Base)
	case *ast.Unary:
		if v.Op == "*" {
			return p.resolveStructTag(v.Rhs)
		}
	case *ast.Cast:
		if v.StructTag != "" {
			return v.StructTag
		}
	}
	if p.lastCastTag != "" {
		return p.lastCastTag
	}
	return ast.UnknownStructTag
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.check(")") {
		p.advance()
		return args, nil
	}
	for {
		a, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.match(",") {
			continue
		}
		break
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrimary parses a number, identifier (possibly an enum constant,
// folded to Num), string literal, or parenthesized expression.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.Number:
		p.advance()
		v, err := parseNumberLexeme(tok.Lexeme)
		if err != nil {
			return nil, p.errf("%v", err)
		}
		return &ast.Num{ExprBase: ast.ExprBase{Pos: tok.Offset}, Value: v}, nil
	case token.String:
		p.advance()
		return &ast.StrLit{ExprBase: ast.ExprBase{Pos: tok.Offset}, Raw: tok.Lexeme}, nil
	case token.Ident:
		p.advance()
		if v, ok := p.enumConsts[tok.Lexeme]; ok {
			return &ast.Num{ExprBase: ast.ExprBase{Pos: tok.Offset}, Value: v}, nil
		}
		return &ast.Var{ExprBase: ast.ExprBase{Pos: tok.Offset}, Name: tok.Lexeme}, nil
	case token.Op:
		if tok.Lexeme == "(" {
			p.advance()
			e, err := p.parseCommaExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	return nil, p.errf("unexpected token %s in expression", tok.Lexeme)
}

// parseInitList parses a brace initializer list: positional, designated
// (`.field = e`, `[idx] = e`), or mixed (§4.3 "Initializers").
func (p *Parser) parseInitList() (*ast.InitList, error) {
	pos := p.peek().Offset
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	list := &ast.InitList{ExprBase: ast.ExprBase{Pos: pos}}
	for !p.check("}") {
		elem := ast.InitElem{IndexDesignator: -1}
		if p.check(".") {
			p.advance()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			elem.FieldDesignator = name
			if _, err := p.expect("="); err != nil {
				return nil, err
			}
		} else if p.check("[") {
			p.advance()
			idx, err := p.parseConstInt()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			elem.IndexDesignator = int(idx)
			if _, err := p.expect("="); err != nil {
				return nil, err
			}
		}
		if p.check("{") {
			nested, err := p.parseInitList()
			if err != nil {
				return nil, err
			}
			elem.Value = nested
		} else {
			v, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			elem.Value = v
		}
		list.Elems = append(list.Elems, elem)
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return list, nil
}

// parseNumberLexeme converts a lexer Number lexeme (decimal or 0x hex,
// with optional trailing u/U/l/L suffix letters) to its int64 value.
func parseNumberLexeme(lex string) (int64, error) {
	end := len(lex)
	for end > 0 && strings.ContainsRune("uUlL", rune(lex[end-1])) {
		end--
	}
	digits := lex[:end]
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return strconv.ParseInt(digits[2:], 16, 64)
	}
	return strconv.ParseInt(digits, 10, 64)
}
