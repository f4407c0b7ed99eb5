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
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	remoteLoadsCounter otelmetric.Int64Counter
	remoteLoadFailures otelmetric.Int64Counter
	remoteKeysLoaded   otelmetric.Int64Counter
	watchEventsCounter otelmetric.Int64Counter
	inheritHops        otelmetric.Int64Counter
	remoteLoadDuration otelmetric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/confkit/etcdconf")

	var err error
	remoteLoadsCounter, err = meter.Int64Counter(
		"confkit.etcd.loads",
		otelmetric.WithDescription("Number of successful remote setting loads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create loads counter: %w", err))
	}

	remoteLoadFailures, err = meter.Int64Counter(
		"confkit.etcd.load.failures",
		otelmetric.WithDescription("Number of failed remote setting loads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create load.failures counter: %w", err))
	}

	remoteKeysLoaded, err = meter.Int64Counter(
		"confkit.etcd.keys.loaded",
		otelmetric.WithDescription("Number of keys fetched from etcd across loads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create keys.loaded counter: %w", err))
	}

	watchEventsCounter, err = meter.Int64Counter(
		"confkit.etcd.watch.events",
		otelmetric.WithDescription("Number of watch events received, by event type"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watch.events counter: %w", err))
	}

	inheritHops, err = meter.Int64Counter(
		"confkit.etcd.inherit.hops",
		otelmetric.WithDescription("Number of inheritance pointers followed during loads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create inherit.hops counter: %w", err))
	}

	remoteLoadDuration, err = meter.Float64Histogram(
		"confkit.etcd.load.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("The duration in seconds of a remote setting load"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create load.duration histogram: %w", err))
	}
}
