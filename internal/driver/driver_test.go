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

package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnitDerivesAsmAndObjPaths(t *testing.T) {
	u := NewUnit(Config{}, "/tmp/src/hello.c")
	assert.Equal(t, "/tmp/src/hello.s", u.AsmPath)
	assert.Equal(t, "/tmp/src/hello.o", u.ObjPath)
}

func TestCompileWritesAssembly(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(inputPath, []byte("int main() { return 0; }\n"), 0o644))

	u := NewUnit(Config{}, inputPath)
	require.NoError(t, u.Compile())

	asm, err := os.ReadFile(u.AsmPath)
	require.NoError(t, err)
	assert.Contains(t, string(asm), "_main:")
}

func TestAssembleFailurePropagatesAsError(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(inputPath, []byte("int main() { return 0; }\n"), 0o644))

	cfg := Config{Assembler: "a-command-that-does-not-exist-anywhere"}
	u := NewUnit(cfg, inputPath)
	require.NoError(t, u.Compile())

	err := u.Assemble()
	assert.Error(t, err)
}
