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
	"os"
	"strings"

	"github.com/spf13/cast"
)

// Env returns the environment value for key, then the stored setting named
// after it (lower-cased, underscores become dots), then def. Nothing is
// stored by the fallback lookup.
func (r *Registry) Env(key string, def string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	name := strings.ToLower(strings.ReplaceAll(key, "_", "."))
	if value, err := r.Lookup(name); err == nil && value != nil {
		return cast.ToString(value)
	}
	return def
}

// Env resolves key against the environment and the default registry.
func Env(key string, def string) string {
	return Default().Env(key, def)
}

// EnvKey returns the environment value for a setting name spelled as an
// environment variable (upper-cased, dots become underscores), or def when
// the variable is unset.
func EnvKey(name string, def string) string {
	key := strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return def
}
