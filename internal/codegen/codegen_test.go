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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorse-io/ccarm/internal/ast"
)

// add(a, b) { return a + b; }
func addProgram() *ast.Program {
	body := ast.Block{
		&ast.Return{Value: &ast.Binary{Op: "+", Lhs: &ast.Var{Name: "a"}, Rhs: &ast.Var{Name: "b"}}},
	}
	return &ast.Program{
		Funcs: []*ast.FuncDef{{
			Name:   "add",
			Params: []ast.Param{{Name: "a"}, {Name: "b"}},
			Body:   body,
		}},
	}
}

func TestGenerateFunctionShape(t *testing.T) {
	asm, err := Generate(addProgram())
	require.NoError(t, err)

	assert.Contains(t, asm, ".globl _add")
	assert.Contains(t, asm, "_add:")
	assert.Contains(t, asm, "stp x29, x30, [sp, #-16]!")
	assert.Contains(t, asm, "mov x29, sp")
	assert.Contains(t, asm, "ldp x29, x30, [sp], #16")
	assert.True(t, strings.HasSuffix(strings.TrimRight(asm, "\n"), "ret"))
}

func TestGenerateStaticFunctionOmitsGlobl(t *testing.T) {
	prog := addProgram()
	prog.Funcs[0].IsStatic = true
	asm, err := Generate(prog)
	require.NoError(t, err)
	assert.NotContains(t, asm, ".globl _add")
	assert.Contains(t, asm, "_add:")
}

func TestStringInterningDeduplicates(t *testing.T) {
	body := ast.Block{
		&ast.ExprStmt{X: &ast.Call{Name: "puts", Args: []ast.Expr{&ast.StrLit{Raw: `"hi"`}}}},
		&ast.ExprStmt{X: &ast.Call{Name: "puts", Args: []ast.Expr{&ast.StrLit{Raw: `"hi"`}}}},
		&ast.Return{},
	}
	prog := &ast.Program{Funcs: []*ast.FuncDef{{Name: "main", Body: body}}}
	asm, err := Generate(prog)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(asm, "l_.str_0:"))
	assert.Equal(t, 0, strings.Count(asm, "l_.str_1:"))
}

func TestFrameSizeIsSixteenByteAligned(t *testing.T) {
	body := ast.Block{
		&ast.VarDecl{Entries: []ast.VarDeclEntry{{Name: "x", ArrayLen: -1}}},
		&ast.Return{},
	}
	prog := &ast.Program{Funcs: []*ast.FuncDef{{Name: "f", Body: body}}}
	asm, err := Generate(prog)
	require.NoError(t, err)
	assert.Contains(t, asm, "sub sp, sp, #16")
}

func TestSwitchLoweringJumpsOverTrampolineOnFallthrough(t *testing.T) {
	body := ast.Block{
		&ast.Switch{
			Cond: &ast.Var{Name: "a"},
			Cases: []ast.SwitchCase{
				{Value: &ast.Num{Value: 1}, Body: ast.Block{&ast.ExprStmt{X: &ast.Assign{Target: &ast.Var{Name: "a"}, Rhs: &ast.Num{Value: 2}}}}},
				{IsDefault: true, Body: ast.Block{&ast.Break{}}},
			},
		},
		&ast.Return{},
	}
	prog := &ast.Program{Funcs: []*ast.FuncDef{{
		Name:   "f",
		Params: []ast.Param{{Name: "a"}},
		Body:   body,
	}}}
	asm, err := Generate(prog)
	require.NoError(t, err)
	assert.Contains(t, asm, "case_tramp")
	assert.Contains(t, asm, "switch_nomatch")
	// The first case's body falls through to the second case's body label,
	// skipping the second case's trampoline (and its stack pop).
	assert.Contains(t, asm, "\tb L_case_body_6\nL_case_tramp_5:")
}

func TestUndeclaredLocalIsCodegenError(t *testing.T) {
	body := ast.Block{
		&ast.ExprStmt{X: &ast.Assign{Target: &ast.Var{Name: "missing"}, Rhs: &ast.Num{Value: 1}}},
	}
	prog := &ast.Program{Funcs: []*ast.FuncDef{{Name: "f", Body: body}}}
	_, err := Generate(prog)
	require.Error(t, err)
}
