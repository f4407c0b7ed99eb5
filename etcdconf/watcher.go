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
	"log/slog"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/confkit/internal/logctx"
)

// StartWatching begins applying remote changes to the registry as they
// happen. At most one watch goroutine runs per adapter. The watch outlives
// ctx and stops only through StopWatching or Close, so callers may pass
// request-scoped contexts without tearing it down.
func (a *Adapter) StartWatching(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.watching || a.client == nil {
		return
	}
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.watching = true
	a.watchCancel = cancel
	go a.watch(wctx, a.client)
}

// StopWatching cancels the watch goroutine if one is running.
func (a *Adapter) StopWatching() {
	a.mu.Lock()
	cancel := a.watchCancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *Adapter) watch(ctx context.Context, backend Backend) {
	defer func() {
		a.mu.Lock()
		a.watching = false
		a.watchCancel = nil
		a.mu.Unlock()
	}()

	prefix := a.Prefix()
	ctx = logctx.With(ctx, slog.String("prefix", prefix))
	log := logctx.FromContext(ctx)
	log.Info("watching remote settings")

	ch := backend.Watch(ctx, prefix, clientv3.WithPrefix())
	for {
		select {
		case <-ctx.Done():
			log.Debug("remote settings watch stopped")
			return
		case resp, ok := <-ch:
			if !ok {
				log.Debug("remote settings watch channel closed")
				return
			}
			if err := resp.Err(); err != nil {
				log.Warn("remote settings watch error", slog.Any("error", err))
				continue
			}
			for _, event := range resp.Events {
				a.applyEvent(ctx, prefix, event)
			}
		}
	}
}

// applyEvent folds one watch event into the registry. Deletions are
// deliberately ignored: a key removed remotely keeps its last known value
// until the next full load.
func (a *Adapter) applyEvent(ctx context.Context, prefix string, event *clientv3.Event) {
	watchEventsCounter.Add(ctx, 1,
		otelmetric.WithAttributes(attribute.String("type", event.Type.String())))
	if event.Type != mvccpb.PUT {
		return
	}
	key := a.settingKey(string(event.Kv.Key), prefix)
	value := decodeValue(event.Kv.Value)
	logctx.FromContext(ctx).Info("remote setting changed", slog.String("name", key))
	a.reg.Set(key, value)
}
