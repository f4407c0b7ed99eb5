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

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/confkit/keyscan"
	"github.com/cardinalhq/confkit/registry"
)

var (
	annotationColor = color.New(color.FgGreen)
	keyColor        = color.New(color.FgCyan)
)

func init() {
	var (
		viewCall    bool
		loadConfigs bool
		showAll     bool
		onlyKeys    bool
		naturalSort bool
		annotate    bool
		importPath  string
		format      string
		forceColor  bool
	)

	cmd := &cobra.Command{
		Use:   "keys [path]",
		Short: "Scan Go source for settings registry usage",
		Long: `Walk a file or directory of Go source and report every settings
registry call found: the keys an application reads, the defaults it
supplies, and where in the tree each call lives. With --load-configs the
report shows the values the current environment would actually resolve.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doneCtx, doneFx, err := setupTelemetry("confkit-keys")
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			calls, err := keyscan.Scan(doneCtx, target, keyscan.Options{ImportPath: importPath})
			if err != nil {
				if len(calls) == 0 {
					return err
				}
				slog.Warn("some files failed to parse", slog.Any("error", err))
			}

			opts := keyscan.ReportOptions{
				All:         showAll,
				OnlyKeys:    onlyKeys,
				Annotate:    annotate,
				NaturalSort: naturalSort,
				Package:     path.Base(importPath),
			}
			switch {
			case viewCall:
				opts.View = keyscan.ViewCall
			case loadConfigs:
				opts.View = keyscan.ViewLive
			default:
				opts.View = keyscan.ViewNamespace
			}

			if loadConfigs {
				reg := registry.Default()
				opts.Live = func(key string) (any, bool) {
					value, err := reg.Lookup(key)
					return value, err == nil
				}
				calls = append(calls, loadedCalls(reg, calls)...)
			}

			if len(calls) == 0 {
				return errors.New("no registry calls found")
			}

			switch format {
			case "text":
				lines := keyscan.Render(calls, opts)
				if forceColor {
					color.NoColor = false
					for i, line := range lines {
						lines[i] = colorizeEntry(line)
					}
				}
				fmt.Println(strings.Join(lines, "\n"))
				return nil
			case "json":
				data, err := json.MarshalIndent(sortedCalls(calls, opts), "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			case "yaml":
				data, err := yaml.Marshal(sortedCalls(calls, opts))
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().BoolVarP(&viewCall, "view-call", "v", false, "render entries as the calls found in source")
	cmd.Flags().BoolVarP(&loadConfigs, "load-configs", "l", false, "load settings and show live values")
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "keep defaultless calls for keys that have a default elsewhere")
	cmd.Flags().BoolVarP(&onlyKeys, "only-keys", "k", false, "list each key once, without values")
	cmd.Flags().BoolVarP(&naturalSort, "natural-sort", "n", false, "order by file and line instead of by key")
	cmd.Flags().BoolVarP(&annotate, "source", "s", false, "annotate entries with their source location")
	cmd.Flags().StringVar(&importPath, "import", keyscan.DefaultImportPath, "import path of the registry package to match")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or yaml (json and yaml emit every discovered call)")
	cmd.Flags().BoolVarP(&forceColor, "color", "c", false, "colorize text output even when piped")

	rootCmd.AddCommand(cmd)
}

// loadedCalls synthesizes entries for settings present in the registry but
// never referenced by the scanned source, so the live report covers keys
// that only configuration files mention.
func loadedCalls(reg *registry.Registry, scanned []keyscan.Call) []keyscan.Call {
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, call := range scanned {
		seen.Add(call.Key)
	}

	settings := reg.AllSettings()
	extra := make([]keyscan.Call, 0, len(settings))
	for _, key := range slices.Sorted(maps.Keys(settings)) {
		if seen.Contains(key) {
			continue
		}
		extra = append(extra, keyscan.LoadedCall(key, settings[key]))
	}
	return extra
}

func sortedCalls(calls []keyscan.Call, opts keyscan.ReportOptions) []keyscan.Call {
	out := slices.Clone(calls)
	if opts.NaturalSort || opts.Annotate {
		keyscan.SortNatural(out)
	} else {
		keyscan.SortByKey(out)
	}
	return out
}

// colorizeEntry colors annotation lines and key names. Entries can span
// two lines when annotated.
func colorizeEntry(entry string) string {
	parts := strings.Split(entry, "\n")
	for i, line := range parts {
		if strings.HasPrefix(line, "#") {
			parts[i] = annotationColor.Sprint(line)
			continue
		}
		if key, rest, found := strings.Cut(line, " = "); found {
			parts[i] = keyColor.Sprint(key) + " = " + rest
		}
	}
	return strings.Join(parts, "\n")
}
