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

package codegen

import "github.com/gorse-io/ccarm/internal/ast"

// genVarDecl lowers a local declaration's initializers into its layout
// slot. An uninitialized entry contributes no code: its slot is simply
// whatever garbage the stack held.
func (g *Generator) genVarDecl(v *ast.VarDecl) error {
	for _, e := range v.Entries {
		if e.Init == nil {
			continue
		}
		sl, ok := g.lo.slots[e.Name]
		if !ok {
			return errf(g.curFunc.Name, "local %q missing from layout", e.Name)
		}
		if err := g.genEntryInit(sl, e, e.Init); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genEntryInit(sl slot, e ast.VarDeclEntry, init ast.Expr) error {
	switch v := init.(type) {
	case *ast.InitList:
		return g.genInitList(sl.offset, e, v)
	case *ast.CompoundLit:
		if v.Init != nil {
			return g.genInitList(sl.offset, e, v.Init)
		}
		return nil
	default:
		if err := g.genValue(init); err != nil {
			return err
		}
		g.emitAddrOffset("x1", "x29", sl.offset)
		if e.IsChar && e.ArrayLen < 0 {
			g.emit("strb w0, [x1]")
		} else {
			g.emit("str x0, [x1]")
		}
		return nil
	}
}

// genInitList lowers a brace initializer into the memory starting at
// baseOff (relative to x29). Struct/union entries assign positionally by
// field order (or by field designator); array entries assign by element
// index (positional or index-designated), each element occupying
// elemWords 8-byte slots. Nested InitLists (2D arrays, array-of-struct,
// embedded structs) recurse with an adjusted base offset.
func (g *Generator) genInitList(baseOff int, e ast.VarDeclEntry, il *ast.InitList) error {
	if e.ArrayLen < 0 && e.StructTag != "" {
		return g.genStructInitList(baseOff, e.StructTag, il)
	}
	elemWords := 1
	var elemStructTag string
	if e.StructTag != "" {
		if def, ok := g.prog.StructByTag(e.StructTag); ok {
			elemWords = def.SlotCount()
			elemStructTag = e.StructTag
		}
	}
	pos := 0
	for _, el := range il.Elems {
		idx := pos
		if el.IndexDesignator >= 0 {
			idx = el.IndexDesignator
		}
		rowWords := elemWords
		if _, isRow := el.Value.(*ast.InitList); isRow && elemStructTag == "" && e.InnerDim2 > 0 {
			rowWords = e.InnerDim2
		}
		wordOff := idx * rowWords
		pos = idx + 1
		if err := g.genInitElem(baseOff+wordOff*8, e, elemStructTag, el.Value); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genStructInitList(baseOff int, structTag string, il *ast.InitList) error {
	def, ok := g.prog.StructByTag(structTag)
	if !ok {
		return errf(g.curFunc.Name, "struct tag %q not found", structTag)
	}
	pos := 0
	for _, el := range il.Elems {
		var f ast.StructField
		if el.FieldDesignator != "" {
			var err error
			f, err = g.fieldSlot(structTag, el.FieldDesignator)
			if err != nil {
				return err
			}
		} else {
			if pos >= len(def.Fields) {
				return errf(g.curFunc.Name, "too many initializers for struct %q", structTag)
			}
			f = def.Fields[pos]
			pos++
		}
		fieldEntry := ast.VarDeclEntry{ArrayLen: -1, StructTag: f.EmbeddedTag}
		if f.ArrayLen >= 0 {
			fieldEntry.ArrayLen = f.ArrayLen
		}
		if err := g.genInitElem(baseOff+f.WordIndex*8, fieldEntry, f.EmbeddedTag, el.Value); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genInitElem(off int, e ast.VarDeclEntry, elemStructTag string, value ast.Expr) error {
	if nested, ok := value.(*ast.InitList); ok {
		nestedEntry := e
		nestedEntry.StructTag = elemStructTag
		nestedEntry.ArrayLen = -1
		if elemStructTag == "" {
			// A nested list with no struct tag is a 2D-array row: treat
			// the row itself as a flat run of scalar slots.
			nestedEntry.ArrayLen = 0
		}
		return g.genInitList(off, nestedEntry, nested)
	}
	if err := g.genValue(value); err != nil {
		return err
	}
	g.emitAddrOffset("x1", "x29", off)
	if e.IsChar && elemStructTag == "" {
		g.emit("strb w0, [x1]")
	} else {
		g.emit("str x0, [x1]")
	}
	return nil
}
