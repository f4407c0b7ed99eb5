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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	configured bool
	bindings   map[string]any
	err        error
	loads      int
}

func (f *fakeRemote) Configured() bool { return f.configured }

func (f *fakeRemote) Load(context.Context) (map[string]any, error) {
	f.loads++
	return f.bindings, f.err
}

type failingProvider struct{ name string }

func (p failingProvider) Name() string { return p.name }

func (p failingProvider) Load(context.Context) (map[string]any, error) {
	return nil, errors.New("boom")
}

func TestLoadMergesProvidersInOrder(t *testing.T) {
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{"key": "first", "only.first": 1}),
		Static("app", map[string]any{"key": "second"}),
	))

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, "second", r.Get("app.key", nil))
	assert.Equal(t, 1, r.Get("app.only.first", nil))
}

func TestLoadWildcardProviderUnprefixed(t *testing.T) {
	r := New(WithoutGlobalProviders(), WithProviders(
		Static(Wildcard, map[string]any{"top.level": true}),
	))

	require.NoError(t, r.Load(context.Background()))
	value, err := r.Lookup("top.level")
	require.NoError(t, err)
	assert.Equal(t, true, value)
}

func TestLoadDeferredProvidersMergeLast(t *testing.T) {
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{"key": "deferred"}).Defer(),
		Static("app", map[string]any{"key": "plain"}),
	))

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, "deferred", r.Get("app.key", nil))
}

func TestLoadSkipsPrivateNames(t *testing.T) {
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{
			"_private": "hidden",
			"public":   "visible",
		}),
	))

	require.NoError(t, r.Load(context.Background()))
	_, err := r.Lookup("app._private")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "visible", r.Get("app.public", nil))
}

func TestLoadSkipsNilNamespace(t *testing.T) {
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{"ghost": (*Namespace)(nil)}),
	))

	require.NoError(t, r.Load(context.Background()))
	_, err := r.Lookup("app.ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFlattensNamespaces(t *testing.T) {
	web := NewNamespace().Set("host", "localhost")
	web.Child("tls").Set("enabled", false)

	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{"web": web}),
	))

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, "localhost", r.Get("app.web.host", nil))
	assert.Equal(t, false, r.Get("app.web.tls.enabled", nil))
}

func TestLoadEvaluatesComputed(t *testing.T) {
	calls := 0
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{
			"computed": Computed(func() any { calls++; return calls }),
			"skipped":  Computed(func() any { return nil }),
			"bare":     func() any { return "bare-func" },
		}),
	))

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, 1, r.Get("app.computed", nil))
	assert.Equal(t, "bare-func", r.Get("app.bare", nil))
	_, err := r.Lookup("app.skipped")
	assert.ErrorIs(t, err, ErrNotFound)

	// Computed bindings re-evaluate on every load.
	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, 2, r.Get("app.computed", nil))
}

func TestLoadProviderErrorAborts(t *testing.T) {
	r := New(WithoutGlobalProviders(), WithProviders(
		failingProvider{name: "bad"},
		Static("app", map[string]any{"never": true}),
	))

	err := r.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `provider "bad"`)
	_, lookupErr := r.Lookup("app.never")
	assert.ErrorIs(t, lookupErr, ErrNotFound)
}

func TestLoadMisregisteredProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
	}{
		{"nil provider", nil},
		{"unnamed provider", Static("", map[string]any{"x": 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithoutGlobalProviders(), WithProviders(tt.provider))
			err := r.Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "misregistered")
		})
	}
}

func TestLoadRemoteMergedUnprefixed(t *testing.T) {
	remote := &fakeRemote{
		configured: true,
		bindings:   map[string]any{"remote.key": "remote-value", "app.key": "from-remote"},
	}
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{"key": "from-provider"}),
	))
	r.SetRemote(remote)

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, "remote-value", r.Get("remote.key", nil))
	// Remote settings land after providers and win collisions.
	assert.Equal(t, "from-remote", r.Get("app.key", nil))
	assert.Equal(t, 1, remote.loads)
}

func TestLoadRemoteUnconfiguredSkipped(t *testing.T) {
	remote := &fakeRemote{configured: false}
	r := New(WithoutGlobalProviders())
	r.SetRemote(remote)

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, 0, remote.loads)
}

func TestLoadRemoteErrorIsSoft(t *testing.T) {
	remote := &fakeRemote{configured: true, err: errors.New("cluster down")}
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{"key": "kept"}),
	))
	r.SetRemote(remote)

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, "kept", r.Get("app.key", nil))
}

func TestLoadLocalOverrideWinsLast(t *testing.T) {
	remote := &fakeRemote{configured: true, bindings: map[string]any{"app.key": "from-remote"}}
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{"key": "from-provider"}),
	))
	r.SetRemote(remote)
	r.SetLocalOverride(Static(Wildcard, map[string]any{"app.key": "from-override"}))

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, "from-override", r.Get("app.key", nil))
}

func TestLoadLocalOverrideAbsent(t *testing.T) {
	r := New(WithoutGlobalProviders())
	r.SetLocalOverride(Static(Wildcard, nil))

	require.NoError(t, r.Load(context.Background()))
}

func TestLoadLocalOverrideErrorFails(t *testing.T) {
	r := New(WithoutGlobalProviders())
	r.SetLocalOverride(failingProvider{name: Wildcard})

	err := r.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local override")
}

func TestLoadHooksFireOnceInOrder(t *testing.T) {
	r := New(WithoutGlobalProviders())

	var order []string
	r.OnReload(func() { order = append(order, "first") })
	r.OnReload(func() { order = append(order, "second") })

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestLoadDuplicateHooksFireTwice(t *testing.T) {
	r := New(WithoutGlobalProviders())

	fired := 0
	hook := func() { fired++ }
	r.OnReload(hook)
	r.OnReload(hook)

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, 2, fired)
}

func TestReloadClear(t *testing.T) {
	r := New(WithoutGlobalProviders(), WithProviders(
		Static("app", map[string]any{"key": "loaded"}),
	))
	require.NoError(t, r.Load(context.Background()))
	r.Set("stray", "manual")

	require.NoError(t, r.Reload(context.Background(), false))
	assert.Equal(t, "manual", r.Get("stray", nil))

	require.NoError(t, r.Reload(context.Background(), true))
	_, err := r.Lookup("stray")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "loaded", r.Get("app.key", nil))
}

func TestRegisterProviderGlobal(t *testing.T) {
	RegisterProvider(Static("globaltest", map[string]any{"wired": true}))

	r := New()
	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, true, r.Get("globaltest.wired", nil))

	// Instances built WithoutGlobalProviders ignore the registration.
	isolated := New(WithoutGlobalProviders())
	require.NoError(t, isolated.Load(context.Background()))
	_, err := isolated.Lookup("globaltest.wired")
	assert.ErrorIs(t, err, ErrNotFound)
}
