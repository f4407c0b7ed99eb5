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
	"sync"
)

// Wildcard is the provider name that disables key prefixing: bindings from
// a provider named "any" merge under their own names.
const Wildcard = "any"

// Provider supplies bindings to the load pipeline. Binding names are
// prefixed with the provider name and a dot before they are stored, unless
// the provider is named Wildcard. Load errors abort the pipeline: a
// provider that cannot produce its bindings is a deployment bug, not a
// degraded mode.
type Provider interface {
	Name() string
	Load(ctx context.Context) (map[string]any, error)
}

// DeferredProvider is a Provider whose bindings merge after every plain
// provider has merged, letting it override their values regardless of
// registration order.
type DeferredProvider interface {
	Provider
	Deferred() bool
}

// Computed is a binding whose value is produced at merge time, each time
// the pipeline runs. A nil result drops the binding for that load.
type Computed func() any

// StaticProvider serves a fixed map of bindings. It is the simplest
// Provider and the building block most callers need.
type StaticProvider struct {
	name     string
	bindings map[string]any
	deferred bool
}

var _ DeferredProvider = (*StaticProvider)(nil)

// Static returns a provider serving bindings under name.
func Static(name string, bindings map[string]any) *StaticProvider {
	return &StaticProvider{name: name, bindings: bindings}
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return p.name }

// Load implements Provider.
func (p *StaticProvider) Load(context.Context) (map[string]any, error) {
	return p.bindings, nil
}

// Deferred implements DeferredProvider.
func (p *StaticProvider) Deferred() bool { return p.deferred }

// Defer marks the provider to merge after all plain providers and returns
// it for chaining.
func (p *StaticProvider) Defer() *StaticProvider {
	p.deferred = true
	return p
}

var (
	globalProvidersMu sync.Mutex
	globalProviderSet []Provider
)

// RegisterProvider adds p to the global provider list consulted by every
// registry load (unless the registry was built WithoutGlobalProviders).
// Registration order is merge order. Registering the same provider twice
// merges it twice.
func RegisterProvider(p Provider) {
	globalProvidersMu.Lock()
	globalProviderSet = append(globalProviderSet, p)
	globalProvidersMu.Unlock()
}

func globalProviders() []Provider {
	globalProvidersMu.Lock()
	defer globalProvidersMu.Unlock()
	out := make([]Provider, len(globalProviderSet))
	copy(out, globalProviderSet)
	return out
}
