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

// Package fileconf feeds settings from configuration files into a
// registry. Files are read with viper, so every format it understands
// (YAML, JSON, TOML, and friends) works, and nested documents flatten to
// the dotted names the registry stores. Importing this package (even
// blank) wires local override discovery into the default registry.
package fileconf

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/cardinalhq/confkit/registry"
)

// Provider loads one configuration file as registry bindings. The zero
// value is not usable; construct with NewProvider.
type Provider struct {
	name     string
	path     string
	deferred bool
}

var _ registry.DeferredProvider = (*Provider)(nil)

// NewProvider returns a provider that reads path and merges its contents
// under name. Use registry.Wildcard as the name to merge keys unprefixed.
func NewProvider(name string, path string) *Provider {
	return &Provider{name: name, path: path}
}

// Name implements registry.Provider.
func (p *Provider) Name() string { return p.name }

// Deferred implements registry.DeferredProvider.
func (p *Provider) Deferred() bool { return p.deferred }

// Defer marks the provider to merge after all plain providers. It returns
// the receiver for chaining at registration sites.
func (p *Provider) Defer() *Provider {
	p.deferred = true
	return p
}

// Load reads the file and flattens it to dotted keys. A missing or
// unparseable file is an error: a registered file provider is expected to
// have its file.
func (p *Provider) Load(_ context.Context) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(p.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", p.path, err)
	}
	return flatten(v), nil
}

// flatten renders everything viper holds as dotted-key bindings. Viper
// already folds keys to lower case, which lines up with the registry's
// default case policy.
func flatten(v *viper.Viper) map[string]any {
	keys := v.AllKeys()
	settings := make(map[string]any, len(keys))
	for _, key := range keys {
		settings[key] = v.Get(key)
	}
	return settings
}
