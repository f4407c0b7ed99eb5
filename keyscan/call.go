// Copyright (C) 2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package keyscan finds settings registry calls in Go source without
// executing it. It matches syntactically against the registry import's
// local name, so files that never import the registry package are never
// misread, and aliased imports are honored.
package keyscan

import (
	"fmt"
	"strconv"
	"strings"
)

// NotSet renders in place of a default for keys that have none.
const NotSet = "<not set>"

// Call is one registry API call discovered in a source file.
type Call struct {
	// Method is the registry method name, such as "Get" or "Set".
	Method string `json:"method" yaml:"method"`

	// Key is the first argument. When it is not a string literal,
	// KeyIsLiteral is false and Key holds the rendered expression in
	// angle brackets.
	Key          string `json:"key" yaml:"key"`
	KeyIsLiteral bool   `json:"key_is_literal" yaml:"key_is_literal"`

	// Args holds the remaining arguments, rendered back to source text.
	// For value-returning methods the first entry is the default.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Source position. A Call with no File was synthesized from a loaded
	// registry rather than discovered by scanning.
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column int    `json:"column,omitempty" yaml:"column,omitempty"`
}

// LoadedCall synthesizes a Call for a key that exists in a loaded registry
// but was not seen in any scanned file.
func LoadedCall(key string, value any) Call {
	return Call{
		Method:       "Set",
		Key:          key,
		KeyIsLiteral: true,
		Args:         []string{renderValue(value)},
	}
}

// Default returns the call's default value rendering and whether the call
// carried one.
func (c Call) Default() (string, bool) {
	if len(c.Args) == 0 {
		return "", false
	}
	return strings.Join(c.Args, ", "), true
}

// Annotation returns a comment locating the call's origin.
func (c Call) Annotation() string {
	if c.File == "" {
		return "# Loaded config"
	}
	return fmt.Sprintf("# %s, line %d", c.File, c.Line)
}

// AsNamespace renders the call as a settings assignment: `key = default`.
func (c Call) AsNamespace() string {
	def, ok := c.Default()
	if !ok {
		def = NotSet
	}
	return fmt.Sprintf("%s = %s", c.Key, def)
}

// AsCall renders the call as it would appear in source, qualified with
// pkg as the package name.
func (c Call) AsCall(pkg string) string {
	var args string
	if def, ok := c.Default(); ok {
		args = ", " + def
	}
	return fmt.Sprintf("%s.%s(%q%s)", pkg, c.Method, c.Key, args)
}

// AsLive renders the call as an assignment of its current value. A nil or
// missing value falls back to the scanned default.
func (c Call) AsLive(value any, ok bool) string {
	if ok && value != nil {
		return fmt.Sprintf("%s = %s", c.Key, renderValue(value))
	}
	return c.AsNamespace()
}

func renderValue(value any) string {
	if s, ok := value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v", value)
}
