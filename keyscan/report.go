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

package keyscan

import (
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// View selects how a rendered call reads.
type View string

const (
	// ViewNamespace renders `key = default`.
	ViewNamespace View = "namespace"
	// ViewCall renders the call as written in source.
	ViewCall View = "call"
	// ViewLive renders `key = value` using current registry values.
	ViewLive View = "live"
)

// ReportOptions shape Render output.
type ReportOptions struct {
	View View

	// All keeps calls without defaults even when another call supplies
	// the key's default.
	All bool

	// OnlyKeys lists each discovered key once, without values.
	OnlyKeys bool

	// Annotate prefixes every entry with its source location and forces
	// natural sorting.
	Annotate bool

	// NaturalSort orders by file and line instead of by key.
	NaturalSort bool

	// Package is the display name used by ViewCall. Empty means
	// "registry".
	Package string

	// Live resolves a key's current value for ViewLive.
	Live func(key string) (any, bool)
}

func (o ReportOptions) pkg() string {
	if o.Package == "" {
		return "registry"
	}
	return o.Package
}

// Render formats calls into report lines.
func Render(calls []Call, opts ReportOptions) []string {
	calls = slices.Clone(calls)
	if opts.NaturalSort || opts.Annotate {
		SortNatural(calls)
	} else {
		SortByKey(calls)
	}

	lines := make([]string, 0, len(calls))

	if opts.OnlyKeys {
		seen := mapset.NewThreadUnsafeSet[string]()
		for _, call := range calls {
			if !seen.Add(call.Key) {
				continue
			}
			lines = append(lines, formatCall(call, opts))
		}
		return lines
	}

	// Keys that have a default somewhere. Without All, a defaultless
	// call for such a key adds nothing and is dropped.
	defaulted := mapset.NewThreadUnsafeSet[string]()
	for _, call := range calls {
		if _, ok := call.Default(); ok {
			defaulted.Add(call.Key)
		}
	}
	for _, call := range calls {
		if _, ok := call.Default(); !ok && !opts.All && defaulted.Contains(call.Key) {
			continue
		}
		lines = append(lines, formatCall(call, opts))
	}
	return lines
}

func formatCall(call Call, opts ReportOptions) string {
	var b strings.Builder
	if opts.Annotate {
		b.WriteString(call.Annotation())
		b.WriteString("\n")
	}
	switch {
	case opts.OnlyKeys:
		b.WriteString(call.Key)
	case opts.View == ViewCall:
		b.WriteString(call.AsCall(opts.pkg()))
	case opts.View == ViewLive && opts.Live != nil:
		value, ok := opts.Live(call.Key)
		b.WriteString(call.AsLive(value, ok))
	default:
		b.WriteString(call.AsNamespace())
	}
	return b.String()
}
