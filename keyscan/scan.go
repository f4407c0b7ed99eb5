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
	"bytes"
	"cmp"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// DefaultImportPath is the registry package whose calls are scanned for
// when Options does not name another one.
const DefaultImportPath = "github.com/cardinalhq/confkit/registry"

// scanMethods are the registry calls worth reporting: everything that
// names a setting key as its first argument.
var scanMethods = map[string]struct{}{
	"Get":                {},
	"Set":                {},
	"Lookup":             {},
	"NewSetting":         {},
	"NewRequiredSetting": {},
	"GetString":          {},
	"GetBool":            {},
	"GetInt":             {},
	"GetInt64":           {},
	"GetFloat64":         {},
	"GetDuration":        {},
	"GetStringSlice":     {},
	"GetStringMap":       {},
}

// Options control what a scan matches.
type Options struct {
	// ImportPath identifies the registry package. Files that do not
	// import it yield no calls. Empty means DefaultImportPath.
	ImportPath string
}

func (o Options) importPath() string {
	if o.ImportPath == "" {
		return DefaultImportPath
	}
	return o.ImportPath
}

// Scan scans a file or a directory tree, whichever path names.
func Scan(ctx context.Context, target string, opts Options) ([]Call, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ScanDir(ctx, target, opts)
	}
	return ScanFile(token.NewFileSet(), target, nil, opts)
}

// ScanFile parses one Go file and returns the registry calls it makes.
// src may be nil to read from disk, or hold the source per go/parser.
func ScanFile(fset *token.FileSet, filename string, src []byte, opts Options) ([]Call, error) {
	var source any
	if src != nil {
		source = src
	}
	file, err := parser.ParseFile(fset, filename, source, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	aliases := importAliases(file, opts.importPath())
	if len(aliases) == 0 {
		return nil, nil
	}

	var calls []Call
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok || !aliases[ident.Name] {
			return true
		}
		if _, ok := scanMethods[sel.Sel.Name]; !ok {
			return true
		}
		calls = append(calls, newCall(fset, call, sel.Sel.Name))
		return true
	})
	return calls, nil
}

// ScanDir walks dir for .go files and scans them concurrently. Hidden,
// underscore, vendor, and testdata directories are skipped. Files that
// fail to parse are reported through the returned error while the calls
// from every other file are still returned, so callers can log and keep
// the partial result.
func ScanDir(ctx context.Context, dir string, opts Options) ([]Call, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p == dir {
				return nil
			}
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "vendor" || name == "testdata" {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".go") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	var (
		mu       sync.Mutex
		calls    []Call
		scanErrs *multierror.Error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, filename := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found, err := ScanFile(fset, filename, nil, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				scanErrs = multierror.Append(scanErrs, err)
				return nil
			}
			calls = append(calls, found...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return calls, scanErrs.ErrorOrNil()
}

// importAliases maps the local names under which file imports importPath.
// Blank imports call nothing and dot imports drop the qualifier entirely,
// so both are excluded.
func importAliases(file *ast.File, importPath string) map[string]bool {
	aliases := make(map[string]bool)
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != importPath {
			continue
		}
		name := path.Base(p)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		aliases[name] = true
	}
	return aliases
}

func newCall(fset *token.FileSet, call *ast.CallExpr, method string) Call {
	pos := fset.Position(call.Pos())
	c := Call{
		Method: method,
		File:   pos.Filename,
		Line:   pos.Line,
		Column: pos.Column,
	}
	if lit, ok := call.Args[0].(*ast.BasicLit); ok && lit.Kind == token.STRING {
		if key, err := strconv.Unquote(lit.Value); err == nil {
			c.Key = key
			c.KeyIsLiteral = true
		}
	}
	if !c.KeyIsLiteral {
		c.Key = "<" + renderExpr(fset, call.Args[0]) + ">"
	}
	for _, arg := range call.Args[1:] {
		c.Args = append(c.Args, renderExpr(fset, arg))
	}
	return c
}

func renderExpr(fset *token.FileSet, expr ast.Expr) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, expr); err != nil {
		return "<unparsed>"
	}
	return buf.String()
}

// SortByKey orders calls alphabetically by key, breaking ties by source
// position.
func SortByKey(calls []Call) {
	slices.SortFunc(calls, func(a, b Call) int {
		if c := cmp.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		if c := cmp.Compare(a.File, b.File); c != 0 {
			return c
		}
		return cmp.Compare(a.Line, b.Line)
	})
}

// SortNatural orders calls by file and line.
func SortNatural(calls []Call) {
	slices.SortFunc(calls, func(a, b Call) int {
		if c := cmp.Compare(a.File, b.File); c != 0 {
			return c
		}
		return cmp.Compare(a.Line, b.Line)
	})
}
