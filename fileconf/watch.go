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
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of filesystem events an editor save
// produces into a single onChange call.
const debounceWindow = 500 * time.Millisecond

// WatchFile invokes onChange after path changes on disk. The parent
// directory is watched rather than the file itself, so atomic-rename
// writers (most editors) keep triggering after the inode changes. The
// watch runs until stop is called; stop is safe to call more than once.
func WatchFile(path string, onChange func()) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	base := filepath.Base(path)
	go watchLoop(watcher, path, base, onChange)

	var once sync.Once
	stop = func() {
		once.Do(func() { _ = watcher.Close() })
	}
	return stop, nil
}

func watchLoop(watcher *fsnotify.Watcher, path string, base string, onChange func()) {
	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			pending = time.After(debounceWindow)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config file watch error", slog.String("path", path), slog.Any("error", err))
		case <-pending:
			pending = nil
			slog.Info("config file changed", slog.String("path", path))
			onChange()
		}
	}
}
