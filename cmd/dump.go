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
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/confkit/registry"
)

func init() {
	var format string

	cmd := &cobra.Command{
		Use:   "dump [prefix]",
		Short: "Print the merged settings the current environment resolves",
		Long: `Run the full load pipeline the way an application process would,
then print every resulting setting. An optional prefix argument narrows
the output to matching keys.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, doneFx, err := setupTelemetry("confkit-dump")
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			reg := registry.Default()
			settings := reg.AllSettings()
			if len(args) == 1 {
				prefix := reg.NormalizeKey(args[0])
				for key := range settings {
					if !strings.HasPrefix(key, prefix) {
						delete(settings, key)
					}
				}
			}

			switch format {
			case "table":
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.SetStyle(table.StyleRounded)
				t.AppendHeader(table.Row{"Setting", "Value"})
				for _, key := range slices.Sorted(maps.Keys(settings)) {
					t.AppendRow(table.Row{key, fmt.Sprintf("%v", settings[key])})
				}
				t.Render()
				return nil
			case "json":
				data, err := json.MarshalIndent(settings, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			case "yaml":
				data, err := yaml.Marshal(settings)
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

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json, or yaml")

	rootCmd.AddCommand(cmd)
}
