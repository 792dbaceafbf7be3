/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/trailhud/common"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/remote"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/stream"
	"github.com/rotblauer/trailhud/tracking"
	"github.com/spf13/cobra"
)

var optRemoteURL string
var optRemoteImport bool

// remoteCmd represents the remote command
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Talk to the location collector",
}

// remoteLocationsCmd represents the remote locations command
var remoteLocationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List the collector's locations, or import them",
	Long: `Locations fetches every location the collector holds.

Without --import they are printed as a JSON array. With --import they are
validated, deduplicated and appended to the local store like live fixes.
The store is locked by a running daemon; stop it first.

The collector URL comes from --url, or sync.url in config or environment.

Examples:

  trailhud remote locations --url http://localhost:3000/
  TRAILHUD_SYNC_URL=http://localhost:3000/ trailhud remote locations --import
`,
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		if optRemoteURL != "" {
			config.Sync.URL = optRemoteURL
		}
		if config.Sync.URL == "" {
			log.Fatalln("No collector URL; set --url or sync.url")
		}
		client, err := remote.NewClient(config.Sync)
		if err != nil {
			log.Fatalln(err)
		}

		ctx, cancel := common.InterruptContext(cmd.Context())
		defer cancel()

		results, err := client.FetchLocations(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		slog.Info("Fetched locations", "n", humanize.Comma(int64(len(results))), "from", client.BaseURL)

		if !optRemoteImport {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				log.Fatalln(err)
			}
			return
		}

		st, err := store.Open(params.StorePath(config.DataDir), false)
		if err != nil {
			log.Fatalln(err)
		}
		defer st.Close()

		meter := stream.NewMeter(nil, "import/remote", 5*time.Second)
		defer meter.Stop()
		err = importRemoteLocations(ctx, tracking.NewRecorder(st, config.Cache.DedupeSize), results, meter)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalln(err)
		}
		slog.Info("Import done",
			"imported", humanize.Comma(meter.Count()),
			"skipped", humanize.Comma(meter.Drops()))
	},
}

// importRemoteLocations records collector results through rec.
// Invalid and duplicate locations are counted as drops.
func importRemoteLocations(ctx context.Context, rec *tracking.Recorder, results []remote.LocationResult, meter *stream.Meter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	locations := stream.Transform(ctx, remote.LocationResult.Location, stream.Slice(ctx, results))
	for l := range locations {
		if err := rec.RecordLocation(l); err != nil {
			if !errors.Is(err, tracking.ErrDuplicate) {
				slog.Warn("Skipping location", "id", l.ID, "error", err)
			}
			meter.Drop()
			continue
		}
		meter.Mark(l.Date)
	}
	return ctx.Err()
}

func init() {
	rootCmd.AddCommand(remoteCmd)
	remoteCmd.AddCommand(remoteLocationsCmd)
	remoteCmd.PersistentFlags().StringVar(&optRemoteURL, "url", "", "Collector base URL (default sync.url)")
	remoteLocationsCmd.Flags().BoolVar(&optRemoteImport, "import", false, "Append the locations to the local store")
}
