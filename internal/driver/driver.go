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

// Package driver threads one compilation's configuration through the
// pipeline and shells out to the external assembler/linker (spec.md §5,
// §6; these two steps are themselves declared out of scope for the
// pipeline's own design, but the CLI still has to invoke them).
package driver

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gorse-io/ccarm/internal/codegen"
	"github.com/gorse-io/ccarm/internal/lexer"
	"github.com/gorse-io/ccarm/internal/parser"
	"github.com/gorse-io/ccarm/internal/preprocess"
)

// Config is the set of knobs threaded explicitly through one invocation,
// replacing the original C compiler's file-scope globals (spec.md §9,
// "Global mutable state") the way goat.TranslateUnit threads per-run state.
type Config struct {
	Output      string
	CompileOnly bool
	Defines     map[string]string
	IncludeDirs []string
	Verbose     bool
	Assembler   string // defaults to "as"
	Linker      string // defaults to "ld"
}

// Unit is one input file carried through preprocessing, lexing, parsing,
// and code generation (goat's analogue: TranslateUnit).
type Unit struct {
	cfg       Config
	InputPath string
	AsmPath   string
	ObjPath   string
}

// NewUnit resolves an input path's derived asm/object paths under cfg.
func NewUnit(cfg Config, inputPath string) *Unit {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	dir := filepath.Dir(inputPath)
	return &Unit{
		cfg:       cfg,
		InputPath: inputPath,
		AsmPath:   filepath.Join(dir, base+".s"),
		ObjPath:   filepath.Join(dir, base+".o"),
	}
}

// Compile runs preprocess → lexer → parser → codegen over u.InputPath and
// writes the resulting assembly to u.AsmPath.
func (u *Unit) Compile() error {
	pp := preprocess.New(preprocess.Config{
		IncludePaths: u.cfg.IncludeDirs,
		Defines:      u.cfg.Defines,
	})
	cleaned, err := pp.Process(u.InputPath)
	if err != nil {
		return fmt.Errorf("cc: preprocessing %s: %w", u.InputPath, err)
	}

	toks, err := lexer.Tokenize(cleaned)
	if err != nil {
		return fmt.Errorf("cc: lexing %s: %w", u.InputPath, err)
	}

	prog, err := parser.Parse(toks)
	if err != nil {
		return fmt.Errorf("cc: parsing %s: %w", u.InputPath, err)
	}

	asm, err := codegen.Generate(prog)
	if err != nil {
		return fmt.Errorf("cc: generating code for %s: %w", u.InputPath, err)
	}

	if err := os.WriteFile(u.AsmPath, []byte(asm), 0o644); err != nil {
		return fmt.Errorf("cc: writing %s: %w", u.AsmPath, err)
	}
	return nil
}

// Assemble invokes the external assembler on u.AsmPath, producing u.ObjPath
// (spec.md §5: "External-process error... propagate as fatal").
func (u *Unit) Assemble() error {
	as := u.cfg.Assembler
	if as == "" {
		as = "as"
	}
	_, err := runCommand(u.cfg.Verbose, as, "-arch", "arm64", "-o", u.ObjPath, u.AsmPath)
	return err
}

// Link invokes the external linker over objPaths, producing output.
func Link(cfg Config, objPaths []string, output string) error {
	ld := cfg.Linker
	if ld == "" {
		ld = "ld"
	}
	args := []string{"-arch", "arm64", "-o", output, "-lSystem"}
	args = append(args, objPaths...)
	_, err := runCommand(cfg.Verbose, ld, args...)
	return err
}

// runCommand runs a command and returns its combined output, modeled on
// goat's runCommand: verbose-gated tracing, combined-output error wrapping.
func runCommand(verbose bool, name string, arg ...string) (string, error) {
	if verbose {
		fmt.Fprintf(os.Stderr, "cc: running %v\n", append([]string{name}, arg...))
	}
	cmd := exec.Command(name, arg...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			return "", errors.New(string(output))
		}
		return "", err
	}
	return string(output), nil
}

