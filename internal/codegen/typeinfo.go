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

// varInfo looks up name in the current function's layout table, then the
// global table, in the lookup order documented by §3 invariant 2.
func (g *Generator) varInfo(name string) (tag string, ptrDepth, arrayLen int, isChar bool, ok bool) {
	if g.lo != nil {
		if sl, ok2 := g.lo.slots[name]; ok2 {
			return sl.structTag, sl.ptrDepth, sl.arrayLen, sl.isChar, true
		}
	}
	if gd, ok2 := g.prog.GlobalByName(name); ok2 {
		return gd.StructTag, gd.PtrDepth, gd.ArrayLen, gd.IsChar, true
	}
	return "", 0, -1, false, false
}

// elementStride computes the byte stride used for `base + n`/`base[n]`:
// sizeof(struct) when base is a known pointer-to-struct or array-of-struct
// (§4.4 "Pointer-to-struct arithmetic"), 8 otherwise.
func (g *Generator) elementStride(base ast.Expr) int {
	tag, isStructy := g.structPointeeTag(base)
	if isStructy {
		if def, ok := g.prog.StructByTag(tag); ok {
			return def.SlotCount() * 8
		}
	}
	return 8
}

// structPointeeTag reports the struct tag base points into (as a
// pointer-to-struct or array-of-struct), if known.
func (g *Generator) structPointeeTag(base ast.Expr) (string, bool) {
	switch v := base.(type) {
	case *ast.Var:
		if tag, ptrDepth, arrayLen, _, ok := g.varInfo(v.Name); ok && tag != "" {
			if ptrDepth == 1 || arrayLen >= 0 {
				return tag, true
			}
		}
	case *ast.Field:
		return g.fieldPointeeTag(v.StructTag, v.FieldName)
	case *ast.Arrow:
		return g.fieldPointeeTag(v.StructTag, v.FieldName)
	case *ast.Cast:
		if v.StructTag != "" {
			return v.StructTag, true
		}
	case *ast.Unary:
		if v.Op == "*" {
			return g.structPointeeTag(v.Rhs)
		}
	case *ast.Index:
		return g.structPointeeTag(v.Base)
	case *ast.Call:
		if fn, ok := g.prog.FuncByName(v.Name); ok && fn.ReturnStruct != "" {
			return fn.ReturnStruct, true
		}
	}
	return "", false
}

func (g *Generator) fieldPointeeTag(structTag, fieldName string) (string, bool) {
	if structTag == "" || structTag == ast.UnknownStructTag {
		return "", false
	}
	def, ok := g.prog.StructByTag(structTag)
	if !ok {
		return "", false
	}
	f, ok := def.FieldByName(fieldName)
	if !ok {
		return "", false
	}
	if f.PtrToStructTag != "" {
		return f.PtrToStructTag, true
	}
	if f.EmbeddedTag != "" && f.ArrayLen >= 0 {
		return f.EmbeddedTag, true
	}
	return "", false
}

// isCharScalar reports whether e denotes a byte-sized (ldrb/strb) scalar
// load/store target (§4.4 machine model).
func (g *Generator) isCharScalar(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.Var:
		if _, _, arrayLen, isChar, ok := g.varInfo(v.Name); ok {
			return isChar && arrayLen < 0
		}
	case *ast.Field:
		return g.fieldIsChar(v.StructTag, v.FieldName)
	case *ast.Arrow:
		return g.fieldIsChar(v.StructTag, v.FieldName)
	case *ast.Index:
		return g.indexIsChar(v)
	}
	return false
}

func (g *Generator) fieldIsChar(structTag, fieldName string) bool {
	// The struct field table doesn't carry a char flag (§3 StructDef); by
	// the time a char-typed field is read generically, its slot already
	// holds a full 8-byte value from the last store through the same
	// field, so ldr is safe. Byte-narrow access to struct char fields
	// goes through __read_byte/__write_byte (§6).
	return false
}

func (g *Generator) indexIsChar(idx *ast.Index) bool {
	v, ok := idx.Base.(*ast.Var)
	if !ok {
		return false
	}
	_, _, arrayLen, isChar, ok := g.varInfo(v.Name)
	return ok && arrayLen >= 0 && isChar
}
