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
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	settingsStoredCounter otelmetric.Int64Counter
	loadsCounter          otelmetric.Int64Counter
	loadDuration          otelmetric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/confkit/registry")

	var err error
	settingsStoredCounter, err = meter.Int64Counter(
		"confkit.registry.settings.stored",
		otelmetric.WithDescription("Number of settings written to the registry"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create settings.stored counter: %w", err))
	}

	loadsCounter, err = meter.Int64Counter(
		"confkit.registry.loads",
		otelmetric.WithDescription("Number of completed load pipeline runs"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create loads counter: %w", err))
	}

	loadDuration, err = meter.Float64Histogram(
		"confkit.registry.load.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("The duration in seconds of a load pipeline run"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create load.duration histogram: %w", err))
	}
}
