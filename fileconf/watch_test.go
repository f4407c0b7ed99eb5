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

package fileconf

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFileSeesWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "watched.yaml", "v: 1\n")

	var fires atomic.Int32
	stop, err := WatchFile(path, func() { fires.Add(1) })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("v: 2\n"), 0o644))
	require.Eventually(t, func() bool { return fires.Load() >= 1 }, 3*time.Second, 25*time.Millisecond)
}

func TestWatchFileSeesAtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "watched.yaml", "v: 1\n")

	var fires atomic.Int32
	stop, err := WatchFile(path, func() { fires.Add(1) })
	require.NoError(t, err)
	defer stop()

	// Editors write a temp file and rename it over the target.
	tmp := writeFile(t, dir, "watched.yaml.tmp", "v: 2\n")
	require.NoError(t, os.Rename(tmp, path))
	require.Eventually(t, func() bool { return fires.Load() >= 1 }, 3*time.Second, 25*time.Millisecond)
}

func TestWatchFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "watched.yaml", "v: 1\n")
	sibling := writeFile(t, dir, "other.yaml", "v: 1\n")

	var fires atomic.Int32
	stop, err := WatchFile(path, func() { fires.Add(1) })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(sibling, []byte("v: 2\n"), 0o644))
	assert.Never(t, func() bool { return fires.Load() > 0 }, time.Second, 50*time.Millisecond)
}

func TestWatchFileStop(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "watched.yaml", "v: 1\n")

	var fires atomic.Int32
	stop, err := WatchFile(path, func() { fires.Add(1) })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v: 2\n"), 0o644))
	require.Eventually(t, func() bool { return fires.Load() >= 1 }, 3*time.Second, 25*time.Millisecond)

	stop()
	stop() // calling twice is fine

	// Give the debounce window time to drain before snapshotting.
	time.Sleep(debounceWindow + 200*time.Millisecond)
	before := fires.Load()
	require.NoError(t, os.WriteFile(path, []byte("v: 3\n"), 0o644))
	assert.Never(t, func() bool { return fires.Load() > before }, time.Second, 50*time.Millisecond)
}

func TestWatchFileMissingDirectory(t *testing.T) {
	_, err := WatchFile(filepath.Join(t.TempDir(), "missing", "file.yaml"), func() {})
	require.Error(t, err)
}
