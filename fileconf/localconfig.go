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

package fileconf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/cardinalhq/confkit/registry"
)

const (
	// EnvLocalConfig points at the local override file, or at a directory
	// holding a file named LocalConfigName.
	EnvLocalConfig = "CONFKIT_LOCALCONFIG"

	// LocalConfigName is the base name (without extension) searched for
	// when no explicit file is configured.
	LocalConfigName = "localconfig"
)

// LoadLocalOverride reads the developer override file and returns its
// bindings. The file is located through CONFKIT_LOCALCONFIG, falling back
// to a localconfig.* in the working directory. No file is a normal state
// and yields a nil map; a file that exists but cannot be read or parsed is
// an error, because silently ignoring a broken override is how debugging
// sessions go wrong.
func LoadLocalOverride(_ context.Context) (map[string]any, error) {
	v := viper.New()

	if path := os.Getenv(EnvLocalConfig); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("local config %s: %w", path, err)
		}
		if info.IsDir() {
			v.SetConfigName(LocalConfigName)
			v.AddConfigPath(path)
		} else {
			v.SetConfigFile(path)
		}
	} else {
		v.SetConfigName(LocalConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("local config: %w", err)
	}
	return flatten(v), nil
}

// LocalOverridePath resolves the override file the same way
// LoadLocalOverride does and reports whether one exists. Watchers use it
// to find the concrete file to follow.
func LocalOverridePath() (string, bool) {
	if path := os.Getenv(EnvLocalConfig); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return "", false
		}
		if info.IsDir() {
			return findLocalConfig(path)
		}
		return path, true
	}
	return findLocalConfig(".")
}

// findLocalConfig looks for localconfig.<ext> in dir, trying extensions in
// viper's order so discovery matches what ReadInConfig would pick.
func findLocalConfig(dir string) (string, bool) {
	for _, ext := range viper.SupportedExts {
		path := filepath.Join(dir, LocalConfigName+"."+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// overrideProvider adapts LoadLocalOverride to the provider shape the
// registry's override slot expects. Overrides merge unprefixed.
type overrideProvider struct{}

func (overrideProvider) Name() string { return registry.Wildcard }

func (overrideProvider) Load(ctx context.Context) (map[string]any, error) {
	return LoadLocalOverride(ctx)
}

func init() {
	registry.SetOverrideFactory(func(*registry.Registry) registry.Provider {
		return overrideProvider{}
	})
}
