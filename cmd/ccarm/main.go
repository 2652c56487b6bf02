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
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorse-io/ccarm/internal/driver"
)

var verbose bool

var command = &cobra.Command{
	Use:  "cc [-c] [-o output] [-Dname[=value]]... input.c [input2.c ...]",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		compileOnly, _ := cmd.PersistentFlags().GetBool("compile-only")
		output, _ := cmd.PersistentFlags().GetString("output")
		defineFlags, _ := cmd.PersistentFlags().GetStringSlice("define")
		includePaths, _ := cmd.PersistentFlags().GetStringSlice("include-path")

		inputs, objs := splitInputs(args)
		if len(inputs) == 0 {
			usageError("no .c input files given")
		}
		if compileOnly && output != "" && len(inputs) > 1 {
			usageError("-o is not permitted with -c and multiple inputs")
		}

		cfg := driver.Config{
			Output:      output,
			CompileOnly: compileOnly,
			Defines:     parseDefines(defineFlags),
			IncludeDirs: includePaths,
			Verbose:     verbose,
		}

		var objPaths []string
		objPaths = append(objPaths, objs...)
		for _, in := range inputs {
			u := driver.NewUnit(cfg, in)
			if err := u.Compile(); err != nil {
				fatal(err)
			}
			if err := u.Assemble(); err != nil {
				fatal(err)
			}
			if compileOnly {
				dest := u.ObjPath
				if output != "" {
					dest = output
				}
				if dest != u.ObjPath {
					if err := os.Rename(u.ObjPath, dest); err != nil {
						fatal(err)
					}
				}
				continue
			}
			objPaths = append(objPaths, u.ObjPath)
		}

		if compileOnly {
			return
		}
		out := output
		if out == "" {
			out = "a.out"
		}
		if err := driver.Link(cfg, objPaths, out); err != nil {
			fatal(err)
		}
	},
}

// splitInputs separates `.c` sources (to compile) from `.o` objects (to
// pass straight through to the linker), per spec.md §6's input grammar.
func splitInputs(args []string) (inputs, objs []string) {
	for _, a := range args {
		switch filepath.Ext(a) {
		case ".o":
			objs = append(objs, a)
		default:
			inputs = append(inputs, a)
		}
	}
	return inputs, objs
}

// parseDefines turns `name` or `name=value` pairs from repeated `-D` flags
// into a macro table (value defaults to `1`, spec.md §6).
func parseDefines(flags []string) map[string]string {
	defines := map[string]string{}
	for _, d := range flags {
		name, value, found := strings.Cut(d, "=")
		if !found {
			value = "1"
		}
		defines[name] = value
	}
	return defines
}

func usageError(msg string) {
	fmt.Fprintf(os.Stderr, "cc: %s\n", msg)
	os.Exit(2)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func init() {
	command.PersistentFlags().BoolP("compile-only", "c", false, "compile only; emit <name>.o per input, skip linking")
	command.PersistentFlags().StringP("output", "o", "", "output name (a.out when linking, <base>.o with -c)")
	command.PersistentFlags().StringSliceP("define", "D", nil, "pre-define a macro: name or name=value")
	command.PersistentFlags().StringSliceP("include-path", "I", nil, "additional include search path")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace external assembler/linker invocations")
}

func main() {
	// Run exits on its own for compile/link failures, so an error returned
	// here is a cobra argument or flag error: a usage error.
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
