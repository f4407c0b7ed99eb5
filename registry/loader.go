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
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cardinalhq/confkit/internal/logctx"
)

// Load runs the merge pipeline: registered providers in order, then
// deferred providers, then the remote source, then the local override,
// then the reload hooks. Sources later in the pipeline win key collisions.
//
// A failing provider or a broken override file aborts the load. A failing
// remote source does not; remote settings are optional by contract.
func (r *Registry) Load(ctx context.Context) error {
	start := time.Now()
	log := logctx.FromContext(ctx)

	var deferred []Provider
	for i, p := range r.loadOrder() {
		if p == nil || p.Name() == "" {
			return fmt.Errorf("provider %d: misregistered (nil or unnamed)", i)
		}
		if dp, ok := p.(DeferredProvider); ok && dp.Deferred() {
			deferred = append(deferred, p)
			continue
		}
		if err := r.mergeProvider(ctx, p); err != nil {
			return err
		}
	}
	for _, p := range deferred {
		if err := r.mergeProvider(ctx, p); err != nil {
			return err
		}
	}

	if remote := r.remoteSource(); remote != nil && remote.Configured() {
		bindings, err := remote.Load(ctx)
		if err != nil {
			log.Warn("remote settings unavailable", slog.Any("error", err))
		} else {
			r.update(bindings, "")
		}
	}

	if override := r.overrideProvider(); override != nil {
		bindings, err := override.Load(ctx)
		if err != nil {
			return fmt.Errorf("local override: %w", err)
		}
		if bindings != nil {
			r.update(bindings, "")
		}
	}

	hooks := r.hooks()
	for _, hook := range hooks {
		hook()
	}

	loadsCounter.Add(ctx, 1)
	loadDuration.Record(ctx, time.Since(start).Seconds())
	log.Debug("settings loaded",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("settings", len(r.AllSettings())),
		slog.Int("hooks", len(hooks)))
	return nil
}

// Reload reruns the pipeline. With clear set, stored settings are dropped
// first so keys removed from their sources disappear instead of lingering.
func (r *Registry) Reload(ctx context.Context, clear bool) error {
	if clear {
		r.Clear()
	}
	return r.Load(ctx)
}

func (r *Registry) loadOrder() []Provider {
	var providers []Provider
	if !r.skipGlobal {
		providers = append(providers, globalProviders()...)
	}
	r.mu.RLock()
	providers = append(providers, r.providers...)
	r.mu.RUnlock()
	return providers
}

func (r *Registry) mergeProvider(ctx context.Context, p Provider) error {
	bindings, err := p.Load(ctx)
	if err != nil {
		return fmt.Errorf("provider %q: %w", p.Name(), err)
	}
	base := p.Name()
	if base == Wildcard {
		base = ""
	}
	r.update(bindings, base)
	return nil
}

// update merges one source's bindings, applying the naming rules: names
// starting with "_" are provider-private, nil namespaces are placeholder
// artifacts, namespaces flatten to their leaves, and Computed bindings
// evaluate now with nil results dropped.
func (r *Registry) update(bindings map[string]any, base string) {
	for _, name := range slices.Sorted(maps.Keys(bindings)) {
		value := bindings[name]
		if strings.HasPrefix(name, "_") {
			continue
		}
		if ns, ok := value.(*Namespace); ok && ns == nil {
			continue
		}
		key := name
		if base != "" {
			key = base + "." + name
		}
		switch v := value.(type) {
		case *Namespace:
			v.Walk(key, r.Set)
		case Computed:
			if out := v(); out != nil {
				r.Set(key, out)
			}
		case func() any:
			if out := v(); out != nil {
				r.Set(key, out)
			}
		default:
			r.Set(key, value)
		}
	}
}
