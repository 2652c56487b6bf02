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

import (
	"fmt"
	"os"

	"github.com/gorse-io/ccarm/internal/ast"
)

// genValue lowers e and leaves its rvalue in x0 (§4.4 "Expression
// lowering (per node)").
func (g *Generator) genValue(e ast.Expr) error {
	switch v := e.(type) {
	case *ast.Num:
		g.loadImm(v.Value)
		return nil
	case *ast.Var:
		return g.genVarValue(v)
	case *ast.StrLit:
		label := g.internString(v.Raw)
		g.emit("adrp x0, %s@PAGE", label)
		g.emit("add x0, x0, %s@PAGEOFF", label)
		return nil
	case *ast.Call:
		return g.genCall(v)
	case *ast.Unary:
		return g.genUnary(v)
	case *ast.Binary:
		return g.genBinary(v)
	case *ast.Assign:
		return g.genAssign(v)
	case *ast.Ternary:
		return g.genTernary(v)
	case *ast.PostInc:
		return g.genPostIncDec(v.Operand, "add")
	case *ast.PostDec:
		return g.genPostIncDec(v.Operand, "sub")
	case *ast.Index, *ast.Field, *ast.Arrow:
		if err := g.genAddr(e); err != nil {
			return err
		}
		g.emitDerefLoad(e)
		return nil
	case *ast.Cast:
		return g.genValue(v.X)
	case *ast.CompoundLit:
		return g.genAddr(e)
	default:
		return errf(g.curFunc.Name, "unsupported expression node %T", e)
	}
}

// loadImm materializes v in x0: `mov` for a value that fits one 16-bit
// chunk, otherwise a movz/movk chain (§4.4).
func (g *Generator) loadImm(v int64) {
	u := uint64(v)
	if v >= 0 && v <= 0xffff {
		g.emit("mov x0, #%d", v)
		return
	}
	g.emit("movz x0, #%d", u&0xffff)
	for shift := uint(16); shift < 64; shift += 16 {
		chunk := (u >> shift) & 0xffff
		if chunk != 0 {
			g.emit("movk x0, #%d, lsl #%d", chunk, shift)
		}
	}
}

func (g *Generator) genVarValue(v *ast.Var) error {
	if sl, ok := g.lo.slots[v.Name]; ok {
		g.emitAddrOffset("x0", "x29", sl.offset)
		if sl.arrayLen >= 0 || (sl.structTag != "" && sl.ptrDepth == 0) {
			return nil
		}
		if sl.isChar {
			g.emit("ldrb w0, [x0]")
		} else {
			g.emit("ldr x0, [x0]")
		}
		return nil
	}
	if gd, ok := g.prog.GlobalByName(v.Name); ok {
		g.emit("adrp x0, _%s@PAGE", v.Name)
		g.emit("add x0, x0, _%s@PAGEOFF", v.Name)
		if gd.ArrayLen >= 0 || (gd.StructTag != "" && gd.PtrDepth == 0) {
			return nil
		}
		if gd.IsChar {
			g.emit("ldrb w0, [x0]")
		} else {
			g.emit("ldr x0, [x0]")
		}
		return nil
	}
	if _, ok := g.prog.FuncByName(v.Name); ok {
		g.emit("adrp x0, _%s@PAGE", v.Name)
		g.emit("add x0, x0, _%s@PAGEOFF", v.Name)
		return nil
	}
	for _, p := range g.prog.Protos {
		if p.Name == v.Name {
			g.emit("adrp x0, _%s@PAGE", v.Name)
			g.emit("add x0, x0, _%s@PAGEOFF", v.Name)
			return nil
		}
	}
	return errf(g.curFunc.Name, "unknown variable %q", v.Name)
}

// emitDerefLoad emits the final load for an lvalue node already addressed
// in x0 (Index/Field/Arrow as rvalues).
func (g *Generator) emitDerefLoad(e ast.Expr) {
	if g.isCharScalar(e) {
		g.emit("ldrb w0, [x0]")
		return
	}
	g.emit("ldr x0, [x0]")
}

func (g *Generator) genUnary(v *ast.Unary) error {
	switch v.Op {
	case "&":
		if isOffsetofNullCast(v.Rhs) {
			fmt.Fprintln(os.Stderr, "codegen: note: offsetof-via-null-cast folds to 0")
			g.emit("mov x0, #0")
			return nil
		}
		return g.genAddr(v.Rhs)
	case "*":
		if err := g.genValue(v.Rhs); err != nil {
			return err
		}
		g.emit("ldr x0, [x0]")
		return nil
	case "-":
		if err := g.genValue(v.Rhs); err != nil {
			return err
		}
		g.emit("neg x0, x0")
		return nil
	case "!":
		if err := g.genValue(v.Rhs); err != nil {
			return err
		}
		g.emit("cmp x0, #0")
		g.emit("cset x0, eq")
		return nil
	case "~":
		if err := g.genValue(v.Rhs); err != nil {
			return err
		}
		g.emit("mvn x0, x0")
		return nil
	case "+":
		return g.genValue(v.Rhs)
	case "++", "--":
		return g.genPrefixIncDec(v)
	}
	return errf(g.curFunc.Name, "unsupported unary operator %q", v.Op)
}

// isOffsetofNullCast reports whether e is `((T*)0)->member` or `((T*)0).member`
// — the classic offsetof-via-null-cast idiom. This generator does not compute
// a real field offset against a null base; §6 decides to fold the whole
// `&...` expression to 0 rather than either silently diverge with a garbage
// address or hard-error (open question, see DESIGN.md).
func isOffsetofNullCast(e ast.Expr) bool {
	var obj ast.Expr
	switch v := e.(type) {
	case *ast.Arrow:
		obj = v.Obj
	case *ast.Field:
		obj = v.Obj
	default:
		return false
	}
	cast, ok := obj.(*ast.Cast)
	if !ok {
		return false
	}
	n, ok := cast.X.(*ast.Num)
	return ok && n.Value == 0
}

func (g *Generator) genPrefixIncDec(v *ast.Unary) error {
	op := "add"
	if v.Op == "--" {
		op = "sub"
	}
	if err := g.genAddr(v.Rhs); err != nil {
		return err
	}
	g.emit("mov x2, x0")
	isChar := g.isCharScalar(v.Rhs)
	if isChar {
		g.emit("ldrb w0, [x2]")
	} else {
		g.emit("ldr x0, [x2]")
	}
	stride := g.ptrStride(v.Rhs)
	g.emitScaleAdd(op, stride)
	if isChar {
		g.emit("strb w0, [x2]")
	} else {
		g.emit("str x0, [x2]")
	}
	return nil
}

func (g *Generator) genPostIncDec(operand ast.Expr, op string) error {
	if err := g.genAddr(operand); err != nil {
		return err
	}
	g.emit("mov x2, x0")
	isChar := g.isCharScalar(operand)
	if isChar {
		g.emit("ldrb w0, [x2]")
	} else {
		g.emit("ldr x0, [x2]")
	}
	g.emit("mov x3, x0")
	stride := g.ptrStride(operand)
	g.emitScaleAdd(op, stride)
	if isChar {
		g.emit("strb w0, [x2]")
	} else {
		g.emit("str x0, [x2]")
	}
	g.emit("mov x0, x3")
	return nil
}

// emitScaleAdd emits `x0 = x0 <op> stride`, using a plain #1 immediate
// add/sub when stride==1 (the non-pointer case).
func (g *Generator) emitScaleAdd(op string, stride int) {
	if stride == 1 {
		g.emit("%s x0, x0, #1", op)
		return
	}
	g.emit("mov x9, #%d", stride)
	g.emit("%s x0, x0, x9", op)
}

// ptrStride reports the byte stride that `e ± n` pointer arithmetic or
// e++/e-- should use: sizeof(pointee struct), 8 for any other recognized
// pointer or array, 1 for anything else (§4.4 invariant 8).
func (g *Generator) ptrStride(e ast.Expr) int {
	if v, ok := e.(*ast.Var); ok {
		if tag, ptrDepth, arrayLen, _, ok := g.varInfo(v.Name); ok {
			if ptrDepth >= 1 || arrayLen >= 0 {
				if tag != "" {
					if def, ok2 := g.prog.StructByTag(tag); ok2 {
						return def.SlotCount() * 8
					}
				}
				return 8
			}
		}
	}
	if tag, ok := g.structPointeeTag(e); ok {
		if def, ok2 := g.prog.StructByTag(tag); ok2 {
			return def.SlotCount() * 8
		}
	}
	return 1
}

func (g *Generator) genBinary(v *ast.Binary) error {
	switch v.Op {
	case "&&":
		return g.genLogicalAnd(v)
	case "||":
		return g.genLogicalOr(v)
	case ",":
		if err := g.genValue(v.Lhs); err != nil {
			return err
		}
		return g.genValue(v.Rhs)
	}

	if err := g.genValue(v.Lhs); err != nil {
		return err
	}
	g.push("x0")
	if err := g.genValue(v.Rhs); err != nil {
		return err
	}
	if v.Op == "+" || v.Op == "-" {
		ls := g.ptrStride(v.Lhs)
		rs := g.ptrStride(v.Rhs)
		if ls > 1 && rs == 1 {
			g.emit("mov x9, #%d", ls)
			g.emit("mul x0, x0, x9")
		}
		g.pop("x1")
		if rs > 1 && ls == 1 {
			g.emit("mov x9, #%d", rs)
			g.emit("mul x1, x1, x9")
		}
	} else {
		g.pop("x1")
	}
	g.emitBinOp(v.Op)
	return nil
}

func (g *Generator) emitBinOp(op string) {
	switch op {
	case "+":
		g.emit("add x0, x1, x0")
	case "-":
		g.emit("sub x0, x1, x0")
	case "*":
		g.emit("mul x0, x1, x0")
	case "/":
		g.emit("sdiv x0, x1, x0")
	case "%":
		g.emit("sdiv x9, x1, x0")
		g.emit("msub x0, x9, x0, x1")
	case "&":
		g.emit("and x0, x1, x0")
	case "|":
		g.emit("orr x0, x1, x0")
	case "^":
		g.emit("eor x0, x1, x0")
	case "<<":
		g.emit("lsl x0, x1, x0")
	case ">>":
		g.emit("asr x0, x1, x0")
	case "==":
		g.emit("cmp x1, x0")
		g.emit("cset x0, eq")
	case "!=":
		g.emit("cmp x1, x0")
		g.emit("cset x0, ne")
	case "<":
		g.emit("cmp x1, x0")
		g.emit("cset x0, lt")
	case "<=":
		g.emit("cmp x1, x0")
		g.emit("cset x0, le")
	case ">":
		g.emit("cmp x1, x0")
		g.emit("cset x0, gt")
	case ">=":
		g.emit("cmp x1, x0")
		g.emit("cset x0, ge")
	}
}

func (g *Generator) genLogicalAnd(v *ast.Binary) error {
	falseLabel := g.newLabel("and_false")
	endLabel := g.newLabel("and_end")
	if err := g.genValue(v.Lhs); err != nil {
		return err
	}
	g.emit("cmp x0, #0")
	g.emit("beq %s", falseLabel)
	if err := g.genValue(v.Rhs); err != nil {
		return err
	}
	g.emit("cmp x0, #0")
	g.emit("cset x0, ne")
	g.emit("b %s", endLabel)
	g.emitLabel(falseLabel)
	g.emit("mov x0, #0")
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) genLogicalOr(v *ast.Binary) error {
	trueLabel := g.newLabel("or_true")
	endLabel := g.newLabel("or_end")
	if err := g.genValue(v.Lhs); err != nil {
		return err
	}
	g.emit("cmp x0, #0")
	g.emit("bne %s", trueLabel)
	if err := g.genValue(v.Rhs); err != nil {
		return err
	}
	g.emit("cmp x0, #0")
	g.emit("cset x0, ne")
	g.emit("b %s", endLabel)
	g.emitLabel(trueLabel)
	g.emit("mov x0, #1")
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) genAssign(v *ast.Assign) error {
	if err := g.genAddr(v.Target); err != nil {
		return err
	}
	g.push("x0")
	if err := g.genValue(v.Rhs); err != nil {
		return err
	}
	g.pop("x1")
	if g.isCharScalar(v.Target) {
		g.emit("strb w0, [x1]")
	} else {
		g.emit("str x0, [x1]")
	}
	return nil
}

func (g *Generator) genTernary(v *ast.Ternary) error {
	elseLabel := g.newLabel("tern_else")
	endLabel := g.newLabel("tern_end")
	if err := g.genValue(v.Cond); err != nil {
		return err
	}
	g.emit("cmp x0, #0")
	g.emit("beq %s", elseLabel)
	if err := g.genValue(v.Then); err != nil {
		return err
	}
	g.emit("b %s", endLabel)
	g.emitLabel(elseLabel)
	if err := g.genValue(v.Else); err != nil {
		return err
	}
	g.emitLabel(endLabel)
	return nil
}

// genAddr lowers e and leaves its lvalue address in x0 (§4.4: Var/Index/
// Field/Arrow/Unary`&`/Unary`*` are the addressable node kinds).
func (g *Generator) genAddr(e ast.Expr) error {
	switch v := e.(type) {
	case *ast.Var:
		return g.genVarAddr(v)
	case *ast.Unary:
		if v.Op == "*" {
			return g.genValue(v.Rhs)
		}
	case *ast.Index:
		return g.genIndexAddr(v)
	case *ast.Field:
		return g.genFieldAddr(v)
	case *ast.Arrow:
		return g.genArrowAddr(v)
	case *ast.CompoundLit:
		return g.genCompoundLitAddr(v)
	case *ast.Cast:
		return g.genAddr(v.X)
	}
	return errf(g.curFunc.Name, "expression is not addressable")
}

func (g *Generator) genVarAddr(v *ast.Var) error {
	if sl, ok := g.lo.slots[v.Name]; ok {
		g.emitAddrOffset("x0", "x29", sl.offset)
		return nil
	}
	if _, ok := g.prog.GlobalByName(v.Name); ok {
		g.emit("adrp x0, _%s@PAGE", v.Name)
		g.emit("add x0, x0, _%s@PAGEOFF", v.Name)
		return nil
	}
	return errf(g.curFunc.Name, "unknown variable %q", v.Name)
}

func (g *Generator) genIndexAddr(v *ast.Index) error {
	if err := g.genValue(v.Base); err != nil {
		return err
	}
	g.push("x0")
	if err := g.genValue(v.Index); err != nil {
		return err
	}
	stride := g.elementStride(v.Base)
	if stride != 8 {
		g.emit("mov x9, #%d", stride)
		g.emit("mul x0, x0, x9")
	} else {
		g.emit("lsl x0, x0, #3")
	}
	g.pop("x1")
	g.emit("add x0, x1, x0")
	return nil
}

func (g *Generator) fieldSlot(structTag, fieldName string) (ast.StructField, error) {
	if structTag == "" || structTag == ast.UnknownStructTag {
		return ast.StructField{}, errf(g.curFunc.Name, "unresolved struct tag for field %q", fieldName)
	}
	def, ok := g.prog.StructByTag(structTag)
	if !ok {
		return ast.StructField{}, errf(g.curFunc.Name, "struct tag %q not found", structTag)
	}
	f, ok := def.FieldByName(fieldName)
	if !ok {
		return ast.StructField{}, errf(g.curFunc.Name, "struct %q has no field %q", structTag, fieldName)
	}
	return f, nil
}

func (g *Generator) genFieldAddr(v *ast.Field) error {
	if err := g.genAddr(v.Obj); err != nil {
		return err
	}
	f, err := g.fieldSlot(v.StructTag, v.FieldName)
	if err != nil {
		return err
	}
	g.emitAddrOffset("x0", "x0", f.WordIndex*8)
	return nil
}

func (g *Generator) genArrowAddr(v *ast.Arrow) error {
	if err := g.genValue(v.Obj); err != nil {
		return err
	}
	f, err := g.fieldSlot(v.StructTag, v.FieldName)
	if err != nil {
		return err
	}
	g.emitAddrOffset("x0", "x0", f.WordIndex*8)
	return nil
}

// genCompoundLitAddr lowers `(Tag){ ... }` appearing as a VarDecl
// initializer by recursing through genLocalInit against the variable's
// own slot (stmt.go); reached directly only when a compound literal is
// used somewhere else (e.g. a bare expression statement), which this
// subset does not support.
func (g *Generator) genCompoundLitAddr(v *ast.CompoundLit) error {
	return errf(g.curFunc.Name, "compound literal %q used outside a declaration initializer", v.StructTag)
}
