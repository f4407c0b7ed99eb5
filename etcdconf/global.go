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

package etcdconf

import (
	"context"
	"sync"

	"github.com/cardinalhq/confkit/registry"
)

var (
	defaultMu      sync.Mutex
	defaultAdapter *Adapter
)

func init() {
	registry.SetRemoteFactory(func(reg *registry.Registry) registry.RemoteSource {
		return adapterFor(reg)
	})
}

// adapterFor lazily builds the shared adapter bound to the default
// registry. It is reached both through the factory above (inside the
// default registry's first load) and through Default, whichever runs
// first.
func adapterFor(reg *registry.Registry) *Adapter {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAdapter == nil {
		defaultAdapter = New(reg, LoadFromEnv())
		defaultAdapter.Init(context.Background())
	}
	return defaultAdapter
}

// Default returns the adapter wired to the default registry, creating and
// dialing it on first use.
func Default() *Adapter {
	return adapterFor(registry.Default())
}
