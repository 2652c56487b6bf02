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

package preprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.c")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefineExpandsObjectLikeMacro(t *testing.T) {
	path := writeSource(t, "#define SIZE 8\nint a[SIZE];\n")
	pp := New(Config{})
	out, err := pp.Process(path)
	require.NoError(t, err)
	assert.Contains(t, out, "int a[8];")
	assert.NotContains(t, out, "SIZE")
}

func TestCommandLineDefineSeeds(t *testing.T) {
	path := writeSource(t, "#ifdef DEBUG\nint flag = 1;\n#endif\n")
	pp := New(Config{Defines: map[string]string{"DEBUG": ""}})
	out, err := pp.Process(path)
	require.NoError(t, err)
	assert.Contains(t, out, "int flag = 1;")
}

func TestIfdefSkipsInactiveBranch(t *testing.T) {
	path := writeSource(t, "#ifdef NOPE\nint skipped;\n#else\nint kept;\n#endif\n")
	pp := New(Config{})
	out, err := pp.Process(path)
	require.NoError(t, err)
	assert.Contains(t, out, "int kept;")
	assert.NotContains(t, out, "skipped")
}

func TestStripDirectivesOnlyDropsHashLines(t *testing.T) {
	out := StripDirectivesOnly("#pragma once\nint x;\n#error nope\n")
	assert.Contains(t, out, "int x;")
	assert.NotContains(t, out, "#pragma")
	assert.NotContains(t, out, "#error")
}
