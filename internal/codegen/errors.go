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

import "fmt"

// Error is a fatal codegen failure (spec §7: Codegen error — unknown
// variable, struct tag not found, too many call arguments, layout
// overflow).
type Error struct {
	Func string
	Msg  string
}

func (e *Error) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("cc: codegen error in %s: %s", e.Func, e.Msg)
	}
	return fmt.Sprintf("cc: codegen error: %s", e.Msg)
}

func errf(fn, format string, args ...any) *Error {
	return &Error{Func: fn, Msg: fmt.Sprintf(format, args...)}
}
