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
	"context"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basicSrc = `package demo

import (
	"fmt"

	"github.com/cardinalhq/confkit/registry"
)

func demo() {
	name := registry.GetString("app.name", "confkit")
	registry.Set("app.mode", "server")
	if v, err := registry.Lookup("app.secret"); err == nil {
		fmt.Println(v)
	}
	_ = registry.Get("app.retries", 3)
	_ = name
}
`

func scanSrc(t *testing.T, src string, opts Options) []Call {
	t.Helper()
	calls, err := ScanFile(token.NewFileSet(), "demo.go", []byte(src), opts)
	require.NoError(t, err)
	return calls
}

func TestScanFileFindsCalls(t *testing.T) {
	calls := scanSrc(t, basicSrc, Options{})
	require.Len(t, calls, 4)

	byKey := make(map[string]Call, len(calls))
	for _, c := range calls {
		byKey[c.Key] = c
	}

	name := byKey["app.name"]
	assert.Equal(t, "GetString", name.Method)
	assert.True(t, name.KeyIsLiteral)
	assert.Equal(t, []string{`"confkit"`}, name.Args)
	assert.Equal(t, "demo.go", name.File)
	assert.Equal(t, 10, name.Line)

	assert.Equal(t, "Set", byKey["app.mode"].Method)
	assert.Equal(t, []string{`"server"`}, byKey["app.mode"].Args)

	secret := byKey["app.secret"]
	assert.Equal(t, "Lookup", secret.Method)
	assert.Empty(t, secret.Args)

	assert.Equal(t, []string{"3"}, byKey["app.retries"].Args)
}

func TestScanFileAliasedImport(t *testing.T) {
	src := `package demo

import (
	"time"

	reg "github.com/cardinalhq/confkit/registry"
)

var timeout = reg.GetDuration("http.timeout", 30*time.Second)
`
	calls := scanSrc(t, src, Options{})
	require.Len(t, calls, 1)
	assert.Equal(t, "GetDuration", calls[0].Method)
	assert.Equal(t, "http.timeout", calls[0].Key)
	assert.Equal(t, []string{"30 * time.Second"}, calls[0].Args)
}

func TestScanFileIgnoresOtherPackages(t *testing.T) {
	src := `package demo

import (
	"github.com/cardinalhq/confkit/registry"
	other "example.com/some/config"
)

func demo() {
	_ = registry.Get("mine", 1)
	_ = other.Get("not.mine", 2)
}
`
	calls := scanSrc(t, src, Options{})
	require.Len(t, calls, 1)
	assert.Equal(t, "mine", calls[0].Key)
}

func TestScanFileNoRegistryImport(t *testing.T) {
	src := `package demo

import registry "example.com/other/registry"

var v = registry.Get("looks.like.ours", 1)
`
	calls := scanSrc(t, src, Options{})
	assert.Empty(t, calls, "same local name, different import path")
}

func TestScanFileBlankAndDotImports(t *testing.T) {
	src := `package demo

import (
	_ "github.com/cardinalhq/confkit/registry"
)
`
	assert.Empty(t, scanSrc(t, src, Options{}))

	src = `package demo

import . "github.com/cardinalhq/confkit/registry"

var v = Get("unqualified", 1)
`
	assert.Empty(t, scanSrc(t, src, Options{}), "dot imports drop the qualifier, so matching is off")
}

func TestScanFileNonLiteralKey(t *testing.T) {
	src := `package demo

import (
	"fmt"

	"github.com/cardinalhq/confkit/registry"
)

func demo(shard int) {
	key := "dynamic.key"
	_ = registry.Get(key, 1)
	_ = registry.Get(fmt.Sprintf("shard.%d.limit", shard), 100)
}
`
	calls := scanSrc(t, src, Options{})
	require.Len(t, calls, 2)
	SortNatural(calls)

	assert.Equal(t, "<key>", calls[0].Key)
	assert.False(t, calls[0].KeyIsLiteral)
	assert.Equal(t, `<fmt.Sprintf("shard.%d.limit", shard)>`, calls[1].Key)
}

func TestScanFileRendersComplexArgs(t *testing.T) {
	src := `package demo

import "github.com/cardinalhq/confkit/registry"

var v = registry.Get("complex", map[string]any{"a": 1})
`
	calls := scanSrc(t, src, Options{})
	require.Len(t, calls, 1)
	assert.Equal(t, []string{`map[string]any{"a": 1}`}, calls[0].Args)
}

func TestScanFileCustomImportPath(t *testing.T) {
	src := `package demo

import settings "example.com/platform/settings"

var v = settings.GetBool("feature.on", false)
`
	calls := scanSrc(t, src, Options{ImportPath: "example.com/platform/settings"})
	require.Len(t, calls, 1)
	assert.Equal(t, "feature.on", calls[0].Key)

	assert.Empty(t, scanSrc(t, src, Options{}), "default import path does not match")
}

func TestScanFileParseError(t *testing.T) {
	_, err := ScanFile(token.NewFileSet(), "broken.go", []byte("package demo\nfunc {"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.go")
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}
	return dir
}

func TestScanDir(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.go":              srcWithKey("from.a"),
		"sub/b.go":          srcWithKey("from.b"),
		"vendor/v.go":       srcWithKey("from.vendor"),
		"testdata/t.go":     srcWithKey("from.testdata"),
		"_gen/g.go":         srcWithKey("from.underscore"),
		".hidden/h.go":      srcWithKey("from.hidden"),
		"notgo.txt":         "not go source",
		"broken/broken.go":  "package demo\nfunc {",
		"broken/working.go": srcWithKey("from.broken.dir"),
	})

	calls, err := ScanDir(context.Background(), dir, Options{})
	require.Error(t, err, "the broken file is reported")
	assert.Contains(t, err.Error(), "broken.go")

	keys := make([]string, 0, len(calls))
	for _, c := range calls {
		keys = append(keys, c.Key)
	}
	assert.ElementsMatch(t, []string{"from.a", "from.b", "from.broken.dir"}, keys,
		"skipped directories contribute nothing; parse failures do not drop other files")
}

func srcWithKey(key string) string {
	return `package demo

import "github.com/cardinalhq/confkit/registry"

var v = registry.Get("` + key + `", 1)
`
}

func TestScanDispatch(t *testing.T) {
	dir := writeTree(t, map[string]string{"only.go": srcWithKey("the.key")})

	calls, err := Scan(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Len(t, calls, 1)

	calls, err = Scan(context.Background(), filepath.Join(dir, "only.go"), Options{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "the.key", calls[0].Key)

	_, err = Scan(context.Background(), filepath.Join(dir, "missing.go"), Options{})
	require.Error(t, err)
}

func TestSorting(t *testing.T) {
	calls := []Call{
		{Key: "zeta", File: "a.go", Line: 3},
		{Key: "alpha", File: "b.go", Line: 9},
		{Key: "alpha", File: "a.go", Line: 7},
	}

	SortByKey(calls)
	assert.Equal(t, []Call{
		{Key: "alpha", File: "a.go", Line: 7},
		{Key: "alpha", File: "b.go", Line: 9},
		{Key: "zeta", File: "a.go", Line: 3},
	}, calls)

	SortNatural(calls)
	assert.Equal(t, []Call{
		{Key: "zeta", File: "a.go", Line: 3},
		{Key: "alpha", File: "a.go", Line: 7},
		{Key: "alpha", File: "b.go", Line: 9},
	}, calls)
}
