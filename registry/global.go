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

package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once

	factoryMu       sync.Mutex
	remoteFactory   func(*Registry) RemoteSource
	overrideFactory func(*Registry) Provider
)

// SetRemoteFactory installs the constructor Default uses to attach a
// remote source to the process-wide registry. Backend packages call this
// from init, so importing one (even blank) is what turns remote settings
// on for the default registry.
func SetRemoteFactory(f func(*Registry) RemoteSource) {
	factoryMu.Lock()
	remoteFactory = f
	factoryMu.Unlock()
}

// SetOverrideFactory installs the constructor Default uses to attach a
// local override provider to the process-wide registry.
func SetOverrideFactory(f func(*Registry) Provider) {
	factoryMu.Lock()
	overrideFactory = f
	factoryMu.Unlock()
}

// Default returns the process-wide registry. The first call constructs
// it, attaches whatever backend factories have been registered, and runs
// the load pipeline; later calls return the same instance without
// reloading. A failing first load is logged, not fatal: callers that need
// the error call Load themselves.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
		factoryMu.Lock()
		rf, of := remoteFactory, overrideFactory
		factoryMu.Unlock()
		if rf != nil {
			defaultRegistry.SetRemote(rf(defaultRegistry))
		}
		if of != nil {
			defaultRegistry.SetLocalOverride(of(defaultRegistry))
		}
		if err := defaultRegistry.Load(context.Background()); err != nil {
			slog.Error("initial settings load failed", slog.Any("error", err))
		}
	})
	return defaultRegistry
}

// The package-level accessors operate on the Default registry, so callers
// that never need a private instance can treat the package itself as the
// settings store.

// Set stores value under name in the default registry.
func Set(name string, value any) { Default().Set(name, value) }

// Get returns name from the default registry, storing def on first use.
func Get(name string, def any) any { return Default().Get(name, def) }

// Lookup returns name from the default registry without storing anything.
func Lookup(name string) (any, error) { return Default().Lookup(name) }

// GetString is Get for string-typed settings.
func GetString(name string, def string) string { return Default().GetString(name, def) }

// GetBool is Get for boolean settings.
func GetBool(name string, def bool) bool { return Default().GetBool(name, def) }

// GetInt is Get for integer settings.
func GetInt(name string, def int) int { return Default().GetInt(name, def) }

// GetInt64 is Get for 64-bit integer settings.
func GetInt64(name string, def int64) int64 { return Default().GetInt64(name, def) }

// GetFloat64 is Get for floating point settings.
func GetFloat64(name string, def float64) float64 { return Default().GetFloat64(name, def) }

// GetDuration is Get for duration settings.
func GetDuration(name string, def time.Duration) time.Duration {
	return Default().GetDuration(name, def)
}

// GetStringSlice is Get for string list settings.
func GetStringSlice(name string, def []string) []string { return Default().GetStringSlice(name, def) }

// GetStringMap is Get for nested map settings.
func GetStringMap(name string, def map[string]any) map[string]any {
	return Default().GetStringMap(name, def)
}

// Clear drops every setting stored in the default registry.
func Clear() { Default().Clear() }

// Load runs the default registry's load pipeline.
func Load(ctx context.Context) error { return Default().Load(ctx) }

// Reload reruns the default registry's load pipeline.
func Reload(ctx context.Context, clear bool) error { return Default().Reload(ctx, clear) }

// OnReload registers hook on the default registry.
func OnReload(hook func()) func() { return Default().OnReload(hook) }
