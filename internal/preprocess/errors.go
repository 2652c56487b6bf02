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

import "fmt"

// Error is a fatal preprocessor failure (spec §7: Preprocessor error).
type Error struct {
	File   string
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("cc: %s:%d: preprocessor error: %s", e.File, e.Offset, e.Msg)
	}
	return fmt.Sprintf("cc: preprocessor error: %s", e.Msg)
}

func errf(file string, offset int, format string, args ...any) *Error {
	return &Error{File: file, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
