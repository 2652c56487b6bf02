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

package ast

// UnknownStructTag is the sentinel stored on a Field/Arrow node when the
// parser cannot resolve the operand's struct type (§3 invariant 1, §4.3
// "Struct-type resolution on field access"). Codegen has no lenient
// default for it: a field load or store through a sentinel-tagged node is
// a codegen error ("unresolved struct tag"), and pointer-stride lookups
// treat the sentinel as "no struct" (8-byte stride).
const UnknownStructTag = "__unknown_struct"

// IndirectCallName is the sentinel Call name used to route an indirect
// call (the callee is an arbitrary expression, not an identifier) through
// ordinary Call lowering: the callee expression is prepended to Args (§9).
const IndirectCallName = "__indirect_call"

// Expr is a tagged-variant expression node (§3). Each concrete type owns
// its children exclusively; the AST is a DAG rooted at Program.
type Expr interface {
	exprNode()
	Offset() int
}

// ExprBase is the common embedded header every Expr node carries: its
// source offset. Exported so callers outside this package (the parser)
// can construct node literals directly.
type ExprBase struct{ Pos int }

func (ExprBase) exprNode()     {}
func (e ExprBase) Offset() int { return e.Pos }

// Num is an integer literal.
type Num struct {
	ExprBase
	Value int64
}

// Var is an identifier reference (local, global, or function symbol).
type Var struct {
	ExprBase
	Name string
}

// StrLit is a string literal; Raw retains escapes verbatim (decoding is
// codegen's job, per §4.2).
type StrLit struct {
	ExprBase
	Raw string
}

// Call is a function call. Indirect calls are represented with
// Name==IndirectCallName and the callee expression prepended to Args (§9).
type Call struct {
	ExprBase
	Name string
	Args []Expr
}

// Unary is a prefix unary operator: ! - + ~ * & ++ --.
type Unary struct {
	ExprBase
	Op  string
	Rhs Expr
}

// Binary is a binary operator, including assignment-desugared arithmetic.
type Binary struct {
	ExprBase
	Op       string
	Lhs, Rhs Expr
}

// Index is `base[index]`.
type Index struct {
	ExprBase
	Base, Index Expr
}

// Field is `obj.field`; StructTag is resolved by the parser and is never
// empty once parsing completes (§3 invariant 1).
type Field struct {
	ExprBase
	Obj       Expr
	FieldName string
	StructTag string
}

// Arrow is `obj->field`; Obj is a pointer value, not an address.
type Arrow struct {
	ExprBase
	Obj       Expr
	FieldName string
	StructTag string
}

// Assign is `target = rhs` (compound assignment already desugared at
// parse time per §4.3).
type Assign struct {
	ExprBase
	Target, Rhs Expr
}

// PostInc/PostDec are `operand++`/`operand--`.
type PostInc struct {
	ExprBase
	Operand Expr
}
type PostDec struct {
	ExprBase
	Operand Expr
}

// Ternary is `cond ? then : else`.
type Ternary struct {
	ExprBase
	Cond, Then, Else Expr
}

// InitElem is one element of an InitList: a positional or designated
// initializer.
type InitElem struct {
	FieldDesignator string // "" if positional or index-designated
	IndexDesignator int    // -1 if not index-designated
	Value           Expr
}

// InitList is a brace initializer list; elements may be positional,
// designated, or mixed (§4.3).
type InitList struct {
	ExprBase
	Elems []InitElem
}

// CompoundLit is `(Tag){ init }`, recognized as a postfix on a cast (§4.3).
type CompoundLit struct {
	ExprBase
	StructTag string
	Init      *InitList
}
