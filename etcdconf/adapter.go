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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.etcd.io/etcd/client/pkg/v3/transport"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"

	"github.com/cardinalhq/confkit/internal/logctx"
	"github.com/cardinalhq/confkit/registry"
)

// Backend is the slice of the etcd client the adapter needs. It is
// satisfied by *clientv3.Client; tests substitute fakes.
type Backend interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan
	Close() error
}

var _ Backend = (*clientv3.Client)(nil)

// Adapter loads settings from etcd into a registry. It implements
// registry.RemoteSource.
type Adapter struct {
	reg *registry.Registry
	cfg *Config

	mu          sync.Mutex
	client      Backend
	watching    bool
	watchCancel context.CancelFunc
}

var _ registry.RemoteSource = (*Adapter)(nil)

// New returns an adapter bound to reg. Nothing is dialed until Init. A nil
// cfg means environment-derived configuration.
func New(reg *registry.Registry, cfg *Config) *Adapter {
	if cfg == nil {
		cfg = LoadFromEnv()
	}
	return &Adapter{reg: reg, cfg: cfg}
}

// Init creates the etcd client. Without configured hosts it does nothing,
// and any setup failure leaves the adapter unconfigured rather than
// failing: hosts without etcd keep working on local settings alone.
func (a *Adapter) Init(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return
	}
	log := logctx.FromContext(ctx)
	if len(a.cfg.Hosts) == 0 {
		log.Debug("etcd not configured, remote settings disabled")
		return
	}

	clientCfg := clientv3.Config{
		Endpoints:   a.cfg.Endpoints(),
		DialTimeout: a.cfg.DialTimeout,
		Username:    a.cfg.Username,
		Password:    a.cfg.Password,
		DialOptions: []grpc.DialOption{grpc.WithBlock()},
		Context:     context.WithoutCancel(ctx),
	}
	if a.cfg.TLSEnabled() && (a.cfg.CACert != "" || a.cfg.Cert != "") {
		tlsInfo := transport.TLSInfo{
			CertFile:      a.cfg.Cert,
			KeyFile:       a.cfg.Key,
			TrustedCAFile: a.cfg.CACert,
		}
		tlsCfg, err := tlsInfo.ClientConfig()
		if err != nil {
			log.Warn("etcd TLS setup failed, remote settings disabled", slog.Any("error", err))
			return
		}
		clientCfg.TLS = tlsCfg
	}

	client, err := clientv3.New(clientCfg)
	if err != nil {
		log.Warn("etcd connection failed, remote settings disabled",
			slog.Any("endpoints", clientCfg.Endpoints), slog.Any("error", err))
		return
	}
	a.client = client
	log.Info("etcd connected", slog.Any("endpoints", clientCfg.Endpoints))
}

// Configured reports whether Init produced a usable client.
func (a *Adapter) Configured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client != nil
}

func (a *Adapter) backend() Backend {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

// Prefix returns the key prefix, normalized to lead and trail with a
// slash. The active value lives in the registry under PrefixSettingKey.
func (a *Adapter) Prefix() string {
	return normalizePrefix(a.reg.GetString(PrefixSettingKey, a.cfg.Prefix))
}

// SetPrefix changes the prefix used by later loads. Empty prefixes are
// ignored.
func (a *Adapter) SetPrefix(prefix string) {
	if prefix == "" {
		return
	}
	a.reg.Set(PrefixSettingKey, normalizePrefix(prefix))
}

// Load fetches every key under the current prefix, following inheritance
// pointers up to the configured depth. An unconfigured adapter or a prefix
// with no keys yields an empty result; transport errors are returned so
// the load pipeline can log and continue without remote settings.
func (a *Adapter) Load(ctx context.Context) (map[string]any, error) {
	if !a.Configured() {
		return map[string]any{}, nil
	}
	if a.cfg.Watch {
		a.StartWatching(ctx)
	}

	start := time.Now()
	prefix := a.Prefix()
	settings, err := a.loadPrefix(ctx, prefix, a.cfg.InheritDepth)
	if err != nil {
		remoteLoadFailures.Add(ctx, 1)
		return nil, err
	}
	remoteLoadsCounter.Add(ctx, 1)
	remoteKeysLoaded.Add(ctx, int64(len(settings)))
	remoteLoadDuration.Record(ctx, time.Since(start).Seconds())
	logctx.FromContext(ctx).Debug("remote settings loaded",
		slog.String("prefix", prefix),
		slog.Int("keys", len(settings)),
		slog.Duration("elapsed", time.Since(start)))
	return settings, nil
}

func (a *Adapter) loadPrefix(ctx context.Context, prefix string, depth int) (map[string]any, error) {
	rctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	resp, err := a.backend().Get(rctx, prefix, clientv3.WithPrefix())
	cancel()
	if err != nil {
		return nil, fmt.Errorf("etcd range %q: %w", prefix, err)
	}

	settings := make(map[string]any, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		settings[a.settingKey(string(kv.Key), prefix)] = decodeValue(kv.Value)
	}

	if !a.cfg.Inherit || depth <= 0 {
		return settings, nil
	}
	parent := a.inheritTarget(settings)
	if parent == "" {
		return settings, nil
	}

	inheritHops.Add(ctx, 1)
	inherited, err := a.loadPrefix(ctx, normalizePrefix(parent), depth-1)
	if err != nil {
		return nil, err
	}
	// The inheriting level wins key collisions with its parents.
	for key, value := range settings {
		inherited[key] = value
	}
	return inherited, nil
}

// inheritTarget resolves the inheritance pointer: a value already in the
// registry wins over the one just fetched.
func (a *Adapter) inheritTarget(fetched map[string]any) string {
	if value, err := a.reg.Lookup(a.cfg.InheritKey); err == nil && value != nil {
		return fmt.Sprintf("%v", value)
	}
	if value, ok := fetched[a.cfg.InheritKey]; ok && value != nil {
		return fmt.Sprintf("%v", value)
	}
	return ""
}

// settingKey turns an etcd key into a registry name: the prefix is
// stripped and the rest folds per the registry's case policy.
func (a *Adapter) settingKey(key string, prefix string) string {
	return a.reg.NormalizeKey(strings.TrimPrefix(key, prefix))
}

// decodeValue interprets an etcd value as JSON where possible, falling
// back to the raw string for values written by other tools.
func decodeValue(raw []byte) any {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	return value
}

// Close stops watching and releases the client.
func (a *Adapter) Close() error {
	a.StopWatching()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}
