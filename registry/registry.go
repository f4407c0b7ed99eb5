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

// Package registry implements a process-wide settings store with dotted
// key names, pluggable providers, an optional remote source, and a local
// override file. Values are written by a load pipeline and read by the
// rest of the process at any time.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// ErrNotFound is returned by Lookup when a key has no stored value.
var ErrNotFound = errors.New("setting not found")

// CaseSensitivityKey is the setting that controls key case folding. It is
// read at every store and lookup, so flipping it affects only later
// operations; keys already stored keep the form they were stored under.
const CaseSensitivityKey = "confkit.case_sensitive"

// RemoteSource is a remote settings backend, such as an etcd cluster. A
// source that is not Configured is skipped by the load pipeline, and Load
// errors degrade to a warning rather than failing the pipeline.
type RemoteSource interface {
	Configured() bool
	Load(ctx context.Context) (map[string]any, error)
}

// Registry is a settings store. The zero value is not usable; call New.
type Registry struct {
	mu          sync.RWMutex
	settings    map[string]any
	reloadHooks []func()
	providers   []Provider
	remote      RemoteSource
	override    Provider
	skipGlobal  bool
	logger      *slog.Logger
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger sets the logger used for load and store events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithProviders appends instance-local providers, merged after the globally
// registered ones.
func WithProviders(providers ...Provider) Option {
	return func(r *Registry) { r.providers = append(r.providers, providers...) }
}

// WithoutGlobalProviders makes the registry ignore providers registered
// with RegisterProvider. Mostly useful in tests.
func WithoutGlobalProviders() Option {
	return func(r *Registry) { r.skipGlobal = true }
}

// New returns an empty registry. Nothing is loaded until Load is called.
func New(opts ...Option) *Registry {
	r := &Registry{
		settings: make(map[string]any),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// caseSensitiveLocked reports the current case policy. Callers must hold
// at least the read lock.
func (r *Registry) caseSensitiveLocked() bool {
	return cast.ToBool(r.settings[CaseSensitivityKey])
}

func (r *Registry) normalizeLocked(name string) string {
	if r.caseSensitiveLocked() {
		return name
	}
	return strings.ToLower(name)
}

// NormalizeKey folds name according to the current case policy.
func (r *Registry) NormalizeKey(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.normalizeLocked(name)
}

// Set stores value under name.
func (r *Registry) Set(name string, value any) {
	r.mu.Lock()
	key := r.normalizeLocked(name)
	r.settings[key] = value
	r.mu.Unlock()
	r.logger.Debug("setting stored", slog.String("name", key), slog.Any("value", value))
	settingsStoredCounter.Add(context.Background(), 1)
}

// Get returns the value stored under name. When the name has no value yet,
// def is stored and returned, so the first default seen for a key wins over
// any later ones.
func (r *Registry) Get(name string, def any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.normalizeLocked(name)
	if value, ok := r.settings[key]; ok {
		return value
	}
	r.settings[key] = def
	return def
}

// Lookup returns the value stored under name. Unlike Get it never stores a
// default; an absent name reports ErrNotFound.
func (r *Registry) Lookup(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := r.normalizeLocked(name)
	value, ok := r.settings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return value, nil
}

// GetString is Get for string-typed settings.
func (r *Registry) GetString(name string, def string) string {
	return cast.ToString(r.Get(name, def))
}

// GetBool is Get for boolean settings.
func (r *Registry) GetBool(name string, def bool) bool {
	return cast.ToBool(r.Get(name, def))
}

// GetInt is Get for integer settings.
func (r *Registry) GetInt(name string, def int) int {
	return cast.ToInt(r.Get(name, def))
}

// GetInt64 is Get for 64-bit integer settings.
func (r *Registry) GetInt64(name string, def int64) int64 {
	return cast.ToInt64(r.Get(name, def))
}

// GetFloat64 is Get for floating point settings.
func (r *Registry) GetFloat64(name string, def float64) float64 {
	return cast.ToFloat64(r.Get(name, def))
}

// GetDuration is Get for duration settings. Stored strings parse with
// time.ParseDuration semantics.
func (r *Registry) GetDuration(name string, def time.Duration) time.Duration {
	return cast.ToDuration(r.Get(name, def))
}

// GetStringSlice is Get for string list settings.
func (r *Registry) GetStringSlice(name string, def []string) []string {
	return cast.ToStringSlice(r.Get(name, def))
}

// GetStringMap is Get for nested map settings.
func (r *Registry) GetStringMap(name string, def map[string]any) map[string]any {
	return cast.ToStringMap(r.Get(name, def))
}

// Clear drops every stored setting. Reload hooks and providers are kept.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.settings = make(map[string]any)
	r.mu.Unlock()
}

// Keys returns the stored setting names, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.settings))
	for key := range r.settings {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// AllSettings returns a copy of the stored settings.
func (r *Registry) AllSettings() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.settings))
	for key, value := range r.settings {
		out[key] = value
	}
	return out
}

// OnReload registers hook to run after every load, in registration order.
// Registering the same function twice runs it twice. The hook is returned
// so callers can keep a reference to it.
func (r *Registry) OnReload(hook func()) func() {
	r.mu.Lock()
	r.reloadHooks = append(r.reloadHooks, hook)
	r.mu.Unlock()
	return hook
}

// SetRemote attaches the remote settings source consulted by Load.
func (r *Registry) SetRemote(remote RemoteSource) {
	r.mu.Lock()
	r.remote = remote
	r.mu.Unlock()
}

// SetLocalOverride attaches the provider merged last by Load, after the
// remote source. A nil map from the provider means no override is present.
func (r *Registry) SetLocalOverride(override Provider) {
	r.mu.Lock()
	r.override = override
	r.mu.Unlock()
}

func (r *Registry) remoteSource() RemoteSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.remote
}

func (r *Registry) overrideProvider() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.override
}

func (r *Registry) hooks() []func() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.reloadHooks)
}
