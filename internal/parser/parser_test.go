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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorse-io/ccarm/internal/ast"
	"github.com/gorse-io/ccarm/internal/lexer"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	prog, err := Parse(toks)
	require.NoError(t, err)
	return prog
}

func TestParseFunctionDefinition(t *testing.T) {
	prog := parse(t, `int add(int a, int b) { return a + b; }`)
	require.Len(t, prog.Funcs, 1)
	fn := prog.Funcs[0]
	assert.Equal(t, "add", fn.Name)
	assert.Len(t, fn.Params, 2)
	assert.False(t, fn.Variadic)
}

func TestParseStructFieldOffsets(t *testing.T) {
	prog := parse(t, `struct point { int x; int y; };`)
	def, ok := prog.StructByTag("point")
	require.True(t, ok)
	fx, ok := def.FieldByName("x")
	require.True(t, ok)
	fy, ok := def.FieldByName("y")
	require.True(t, ok)
	assert.Equal(t, 0, fx.WordIndex)
	assert.Equal(t, 1, fy.WordIndex)
	assert.Equal(t, 2, def.SlotCount())
}

func TestParseUnionSharesSlotZero(t *testing.T) {
	prog := parse(t, `union u { int a; struct point { int x; int y; } p; };`)
	def, ok := prog.StructByTag("u")
	require.True(t, ok)
	assert.True(t, def.IsUnion)
	for _, f := range def.Fields {
		assert.Equal(t, 0, f.WordIndex)
	}
}

func TestParseVariadicFunction(t *testing.T) {
	prog := parse(t, `int sum(int count, ...) { return count; }`)
	require.Len(t, prog.Funcs, 1)
	assert.True(t, prog.Funcs[0].Variadic)
}

func TestParseRejectsUnexpectedToken(t *testing.T) {
	toks, err := lexer.Tokenize(`int f( { return 0; }`)
	require.NoError(t, err)
	_, err = Parse(toks)
	assert.Error(t, err)
}
