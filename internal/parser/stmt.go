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
	"github.com/gorse-io/ccarm/internal/ast"
	"github.com/gorse-io/ccarm/internal/token"
)

// parseBlock parses a `{ ... }` brace-delimited statement sequence, or a
// single statement when no brace is present (§3: a Block is an ordered
// sequence of statements with no intrinsic scope semantics).
func (p *Parser) parseBlock() (ast.Block, error) {
	if !p.check("{") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return ast.Block{s}, nil
	}
	p.advance()
	var b ast.Block
	for !p.check("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		b = append(b, s)
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return b, nil
}

// parseStmt parses one statement (§3, §4.3 "Control-flow parsing details").
func (p *Parser) parseStmt() (ast.Stmt, error) {
	tok := p.peek()
	if tok.Kind == token.Keyword {
		switch tok.Lexeme {
		case "return":
			return p.parseReturn()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "for":
			return p.parseFor()
		case "do":
			return p.parseDoWhile()
		case "switch":
			return p.parseSwitch()
		case "break":
			p.advance()
			_, err := p.expect(";")
			return &ast.Break{}, err
		case "continue":
			p.advance()
			_, err := p.expect(";")
			return &ast.Continue{}, err
		case "goto":
			p.advance()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(";"); err != nil {
				return nil, err
			}
			return &ast.Goto{Label: name}, nil
		}
		if p.isTypeStart(tok) {
			return p.parseLocalVarDecl()
		}
	}
	if tok.Kind == token.Ident && p.peekAt(1).Is(":") {
		p.advance()
		p.advance()
		inner, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return &ast.Label{Name: tok.Lexeme, Stmt: inner}, nil
	}
	if tok.Kind == token.Ident && p.isKnownTypedef(tok.Lexeme) {
		return p.parseLocalVarDecl()
	}
	if tok.Is("{") {
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.NestedBlock{Body: b}, nil
	}
	if tok.Is(";") {
		p.advance()
		return &ast.ExprStmt{X: nil}, nil
	}
	e, err := p.parseCommaExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{X: e}, nil
}

func (p *Parser) isKnownTypedef(name string) bool {
	_, ok := p.typedefs[name]
	return ok
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	p.advance()
	if p.match(";") {
		return &ast.Return{}, nil
	}
	e, err := p.parseCommaExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ast.Return{Value: e}, nil
}

// parseIf parses `if (cond) then [else else_]`; dangling else binds to the
// nearest if, which falls out naturally from recursive-descent (§4.3).
func (p *Parser) parseIf() (ast.Stmt, error) {
	p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseCommaExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Cond: cond, Then: then}
	if p.match("else") {
		els, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseCommaExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	p.loopDepth++
	body, err := p.parseBlock()
	p.loopDepth--
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	var init ast.Stmt
	if !p.check(";") {
		tok := p.peek()
		if tok.Kind == token.Keyword && p.isTypeStart(tok) {
			vd, err := p.parseLocalVarDeclNoSemi()
			if err != nil {
				return nil, err
			}
			init = vd
		} else {
			e, err := p.parseCommaExpr()
			if err != nil {
				return nil, err
			}
			init = &ast.ExprStmt{X: e}
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	var cond ast.Expr
	if !p.check(";") {
		var err error
		cond, err = p.parseCommaExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	var post ast.Expr
	if !p.check(")") {
		var err error
		post, err = p.parseCommaExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	p.loopDepth++
	body, err := p.parseBlock()
	p.loopDepth--
	if err != nil {
		return nil, err
	}
	return &ast.For{Init: init, Cond: cond, Post: post, Body: body}, nil
}

func (p *Parser) parseDoWhile() (ast.Stmt, error) {
	p.advance()
	p.loopDepth++
	body, err := p.parseBlock()
	p.loopDepth--
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("while"); err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseCommaExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ast.DoWhile{Body: body, Cond: cond}, nil
}

// parseSwitch parses `switch (cond) { case v: ... default: ... }`,
// collecting any pre-case prelude (declarations before the first `case`)
// and prepending it to the first case's Body (§4.3).
func (p *Parser) parseSwitch() (ast.Stmt, error) {
	p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseCommaExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	var prelude ast.Block
	for !p.check("case") && !p.check("default") && !p.check("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prelude = append(prelude, s)
	}
	var cases []ast.SwitchCase
	first := true
	for !p.check("}") {
		var c ast.SwitchCase
		if p.match("case") {
			v, err := p.parseConstInt()
			if err != nil {
				return nil, err
			}
			c.Value = &ast.Num{Value: v}
			if _, err := p.expect(":"); err != nil {
				return nil, err
			}
		} else if p.match("default") {
			c.IsDefault = true
			if _, err := p.expect(":"); err != nil {
				return nil, err
			}
		} else {
			return nil, p.errf("expected case or default")
		}
		for !p.check("case") && !p.check("default") && !p.check("}") {
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			c.Body = append(c.Body, s)
		}
		if first && len(prelude) > 0 {
			c.Body = append(append(ast.Block{}, prelude...), c.Body...)
		}
		first = false
		cases = append(cases, c)
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return &ast.Switch{Cond: cond, Cases: cases}, nil
}

// parseLocalVarDecl parses a local declaration statement ending in `;`,
// registering each entry in the locals table as it's declared (§4.3
// symbol table "local_vars").
func (p *Parser) parseLocalVarDecl() (ast.Stmt, error) {
	vd, err := p.parseLocalVarDeclNoSemi()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return vd, nil
}

func (p *Parser) parseLocalVarDeclNoSemi() (ast.Stmt, error) {
	spec, err := p.parseBaseType()
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{}
	for {
		entry, err := p.parseDeclarator(spec)
		if err != nil {
			return nil, err
		}
		p.locals[entry.Name] = localInfo{StructTag: entry.StructTag, PtrDepth: entry.PtrDepth, ArrayLen: entry.ArrayLen}
		decl.Entries = append(decl.Entries, entry)
		if !p.match(",") {
			break
		}
	}
	return decl, nil
}

// parseDeclarator parses one `*...name[len][len2] [= init]` declarator
// sharing a base type (§3 VarDeclEntry; §4.3 "multi-declarator commas").
func (p *Parser) parseDeclarator(spec declSpec) (ast.VarDeclEntry, error) {
	ptrDepth := p.parsePointerStars()
	name, err := p.expectIdent()
	if err != nil {
		return ast.VarDeclEntry{}, err
	}
	entry := ast.VarDeclEntry{
		Name: name, PtrDepth: ptrDepth, ArrayLen: -1, InnerDim2: -1,
		IsStatic: spec.IsStatic, IsUnsigned: spec.IsUnsigned, IsChar: spec.IsChar && ptrDepth == 0,
		DeclaredTag: spec.Kind,
	}
	if ptrDepth == 0 {
		entry.StructTag = spec.StructTag
		entry.IsUnion = spec.Kind == ast.Union
	} else if structTag, isStructPtr := spec.toType(ptrDepth).PointerBase(); isStructPtr {
		entry.StructTag = structTag
	}
	if p.match("[") {
		n, err := p.parseConstInt()
		if err != nil {
			return ast.VarDeclEntry{}, err
		}
		entry.ArrayLen = int(n)
		if _, err := p.expect("]"); err != nil {
			return ast.VarDeclEntry{}, err
		}
		if p.match("[") {
			n2, err := p.parseConstInt()
			if err != nil {
				return ast.VarDeclEntry{}, err
			}
			entry.InnerDim2 = int(n2)
			entry.ArrayLen *= int(n2)
			if _, err := p.expect("]"); err != nil {
				return ast.VarDeclEntry{}, err
			}
		}
	}
	if p.match("=") {
		if p.check("{") {
			init, err := p.parseInitList()
			if err != nil {
				return ast.VarDeclEntry{}, err
			}
			if entry.ArrayLen < 0 && len(init.Elems) > 0 {
				entry.ArrayLen = len(init.Elems)
			}
			entry.Init = init
		} else {
			v, err := p.parseAssign()
			if err != nil {
				return ast.VarDeclEntry{}, err
			}
			entry.Init = v
			if str, ok := v.(*ast.StrLit); ok && entry.ArrayLen < 0 && entry.IsChar {
				entry.ArrayLen = decodedStrLen(str.Raw) + 1
			}
		}
	}
	return entry, nil
}

// decodedStrLen computes strlen(decoded)+1-ready length for a string
// literal's raw (quoted, escaped) lexeme, for char-array inferred length
// (§4.3 "String-initialized char arrays").
func decodedStrLen(raw string) int {
	body := raw
	if len(body) >= 2 {
		body = body[1 : len(body)-1]
	}
	n := 0
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			if body[i] >= '0' && body[i] <= '7' {
				for i+1 < len(body) && body[i+1] >= '0' && body[i+1] <= '7' {
					i++
				}
			} else if body[i] == 'x' {
				for i+1 < len(body) && isHexDigitByte(body[i+1]) {
					i++
				}
			}
		}
		n++
	}
	return n
}

func isHexDigitByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
