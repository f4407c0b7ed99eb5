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
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/confkit/etcdconf"
	"github.com/cardinalhq/confkit/fileconf"
	"github.com/cardinalhq/confkit/registry"
)

func init() {
	var watchLocal bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow settings changes until interrupted",
		Long: `Load settings, then keep following changes: remote etcd updates are
applied as they arrive, and with --local the local override file is
re-read whenever it changes. Every applied change is logged. Runs until
SIGINT or SIGTERM.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			doneCtx, doneFx, err := setupTelemetry("confkit-watch")
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			registry.Default()

			watching := false
			adapter := etcdconf.Default()
			if adapter.Configured() {
				adapter.StartWatching(doneCtx)
				defer func() {
					if err := adapter.Close(); err != nil {
						slog.Warn("closing etcd client", slog.Any("error", err))
					}
				}()
				watching = true
			} else {
				slog.Info("no etcd hosts configured, skipping remote watch")
			}

			if watchLocal {
				path, ok := fileconf.LocalOverridePath()
				if !ok {
					slog.Info("no local override file found")
				} else {
					stop, err := fileconf.WatchFile(path, func() {
						if err := registry.Reload(doneCtx, false); err != nil {
							slog.Warn("reload after local change failed", slog.Any("error", err))
						}
					})
					if err != nil {
						return fmt.Errorf("watch %s: %w", path, err)
					}
					defer stop()
					slog.Info("watching local override", slog.String("file", path))
					watching = true
				}
			}

			if !watching {
				return errors.New("nothing to watch: no etcd hosts configured and no local override file")
			}

			<-doneCtx.Done()
			slog.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().BoolVar(&watchLocal, "local", false, "also reload when the local override file changes")

	rootCmd.AddCommand(cmd)
}
