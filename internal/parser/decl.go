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

// parseTopLevel parses one top-level construct: a typedef, a bare
// struct/union/enum declaration, a function (definition or prototype), an
// opaque function-pointer-returning declaration, or a global variable
// (§4.3 "Ambiguity resolution": "at top-level... a following ( signals a
// function... anything else a global variable").
func (p *Parser) parseTopLevel() error {
	if p.check("typedef") {
		return p.parseTypedef()
	}
	spec, err := p.parseBaseType()
	if err != nil {
		return err
	}
	// Bare `struct S { ... };` / `enum E { ... };` with no declarator.
	if p.check(";") {
		p.advance()
		return nil
	}
	// `RetType (*name)(params);` or `RetType (*name(params))(params);` —
	// a function-pointer variable or a function returning a function
	// pointer, recorded as an opaque prototype.
	if p.check("(") && p.peekAt(1).Is("*") {
		return p.parseOpaqueFuncPointerDecl()
	}
	for {
		ptrDepth := p.parsePointerStars()
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		if p.check("(") {
			return p.parseFuncRest(spec, ptrDepth, name)
		}
		if err := p.parseGlobalRest(spec, ptrDepth, name); err != nil {
			return err
		}
		if !p.match(",") {
			break
		}
	}
	_, err = p.expect(";")
	return err
}

// parseTypedef registers an alias name for a base type (+ pointer depth)
// in the typedefs table (§4.3 symbol table "typedefs").
func (p *Parser) parseTypedef() error {
	p.advance() // consume `typedef`
	spec, err := p.parseBaseType()
	if err != nil {
		return err
	}
	for {
		ptrDepth := p.parsePointerStars()
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		kind := spec.Kind
		if ptrDepth > 0 {
			kind = ast.Ptr
		}
		p.typedefs[name] = typedefInfo{
			StructTag: spec.StructTag, IsChar: spec.IsChar && ptrDepth == 0,
			IsUnsigned: spec.IsUnsigned, PtrDepth: ptrDepth, Kind: kind,
		}
		if !p.match(",") {
			break
		}
	}
	_, err = p.expect(";")
	return err
}

// parseOpaqueFuncPointerDecl records `RetType (*name)(params);` and
// `RetType (*name(params))(params);` without fully modeling their
// parameters (§4.3 "opaque prototype").
func (p *Parser) parseOpaqueFuncPointerDecl() error {
	p.advance() // (
	p.advance() // *
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	if p.check("(") {
		if err := p.skipParenGroup(); err != nil {
			return err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return err
	}
	if err := p.skipParenGroup(); err != nil {
		return err
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}
	p.prog.Protos = append(p.prog.Protos, &ast.FuncProto{Name: name, Opaque: true})
	return nil
}

// parseFuncRest parses the parameter list and either a body (function
// definition) or `;` (prototype), having already consumed the return
// type, pointer stars, and name.
func (p *Parser) parseFuncRest(spec declSpec, ptrDepth int, name string) error {
	p.advance() // (
	params, variadic, err := p.parseParamList()
	if err != nil {
		return err
	}
	returnStruct := ""
	if ptrDepth > 0 {
		if tag, isStructPtr := spec.toType(ptrDepth).PointerBase(); isStructPtr {
			returnStruct = tag
		}
	}
	p.funcRet[name] = funcRetInfo{StructTag: returnStruct, PtrDepth: ptrDepth}
	if p.match(";") {
		p.prog.Protos = append(p.prog.Protos, &ast.FuncProto{Name: name, Params: params, Variadic: variadic})
		return nil
	}
	defPos := p.peek().Offset
	p.locals = map[string]localInfo{}
	for _, prm := range params {
		p.locals[prm.Name] = localInfo{StructTag: prm.StructTag, PtrDepth: prm.PtrDepth, ArrayLen: -1}
	}
	body, err := p.parseBlock()
	if err != nil {
		return err
	}
	p.prog.Funcs = append(p.prog.Funcs, &ast.FuncDef{
		Name: name, Params: params, Variadic: variadic, IsStatic: spec.IsStatic,
		ReturnPtr: ptrDepth > 0, ReturnStruct: returnStruct, Body: body, DefPos: defPos,
	})
	p.locals = nil
	return nil
}

// parseParamList parses a `(` already-consumed parameter list up to and
// including the closing `)`.
func (p *Parser) parseParamList() ([]ast.Param, bool, error) {
	var params []ast.Param
	variadic := false
	if p.check(")") {
		p.advance()
		return params, false, nil
	}
	if p.check("void") && p.peekAt(1).Is(")") {
		p.advance()
		p.advance()
		return params, false, nil
	}
	for {
		if p.match("...") {
			variadic = true
			break
		}
		spec, err := p.parseBaseType()
		if err != nil {
			return nil, false, err
		}
		ptrDepth := p.parsePointerStars()
		name := ""
		if p.peek().Kind == token.Ident {
			name = p.advance().Lexeme
		}
		// trailing `[]` on an array-parameter decays to a pointer.
		if p.match("[") {
			if !p.check("]") {
				if _, err := p.parseConstInt(); err != nil {
					return nil, false, err
				}
			}
			if _, err := p.expect("]"); err != nil {
				return nil, false, err
			}
			ptrDepth++
		}
		prm := ast.Param{Name: name, PtrDepth: ptrDepth}
		if ptrDepth > 0 {
			if tag, isStructPtr := spec.toType(ptrDepth).PointerBase(); isStructPtr {
				prm.StructTag = tag
			}
		} else if spec.Kind == ast.Struct || spec.Kind == ast.Union {
			prm.StructTag = spec.StructTag
		}
		params = append(params, prm)
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, false, err
	}
	return params, variadic, nil
}

// parseGlobalRest parses one global declarator's array dims and
// initializer, having already consumed the base type, pointer stars, and
// name (§3 GlobalDecl).
func (p *Parser) parseGlobalRest(spec declSpec, ptrDepth int, name string) error {
	g := &ast.GlobalDecl{
		Name: name, PtrDepth: ptrDepth, ArrayLen: -1,
		IsStatic: spec.IsStatic, IsUnsigned: spec.IsUnsigned, IsChar: spec.IsChar && ptrDepth == 0,
	}
	if ptrDepth == 0 {
		g.StructTag = spec.StructTag
	} else if tag, isStructPtr := spec.toType(ptrDepth).PointerBase(); isStructPtr {
		g.StructTag = tag
	}
	for p.match("[") {
		n, err := p.parseConstInt()
		if err != nil {
			return err
		}
		if g.ArrayLen < 0 {
			g.ArrayLen = int(n)
		} else {
			g.ArrayLen *= int(n)
		}
		if _, err := p.expect("]"); err != nil {
			return err
		}
	}
	if p.match("=") {
		if p.check("{") {
			init, err := p.parseInitList()
			if err != nil {
				return err
			}
			if g.ArrayLen < 0 && len(init.Elems) > 0 {
				g.ArrayLen = len(init.Elems)
			}
			g.Init = init
		} else {
			v, err := p.parseAssign()
			if err != nil {
				return err
			}
			g.Init = v
			if str, ok := v.(*ast.StrLit); ok && g.ArrayLen < 0 && g.IsChar {
				g.ArrayLen = decodedStrLen(str.Raw) + 1
			}
		}
	}
	p.prog.Globals = append(p.prog.Globals, g)
	return nil
}
