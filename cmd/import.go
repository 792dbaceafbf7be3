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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rotblauer/trailhud/common"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/stream"
	"github.com/rotblauer/trailhud/tracking"
	"github.com/rotblauer/trailhud/types"
	"github.com/spf13/cobra"
)

var optImportKind string

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import records from stdin",
	Long: `Import appends records read from stdin to the store.

Input is one JSON message per line. A location line may be a flat object,
a GeoJSON point feature or feature collection, or an array of those.
Locations are validated and deduplicated like live fixes. Inclines are read
as NDJSON. Lines that fail to parse are skipped and counted.

The store is locked by a running daemon; stop it first.

Examples:

  trailhud import --kind locations < drive.ndjson
  zcat exports/inclines.ndjson.gz | trailhud import --kind inclines
`,
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		kind, ok := types.ParseKind(optImportKind)
		if !ok || kind == types.KindRoute {
			log.Fatalln("Invalid kind:", optImportKind)
		}

		ctx, cancel := common.InterruptContext(cmd.Context())
		defer cancel()

		st, err := store.Open(params.StorePath(config.DataDir), false)
		if err != nil {
			log.Fatalln(err)
		}
		defer st.Close()

		started := time.Now()
		meter := stream.NewMeter(nil, "import/"+kind.String(), 5*time.Second)
		defer meter.Stop()

		switch kind {
		case types.KindLocation:
			err = importLocations(ctx, tracking.NewRecorder(st, config.Cache.DedupeSize), os.Stdin, meter)
		case types.KindIncline:
			err = importInclines(ctx, st, os.Stdin, meter)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalln(err)
		}
		slog.Info("Import done", "kind", kind,
			"imported", humanize.Comma(meter.Count()),
			"skipped", humanize.Comma(meter.Drops()),
			"elapsed", time.Since(started).Round(time.Millisecond))
	},
}

// importLocations reads one JSON message per line. Each line may hold a
// location, a point feature, a feature collection or an array of those.
// Lines that fail to parse are counted as drops and skipped.
func importLocations(ctx context.Context, rec *tracking.Recorder, r io.Reader, meter *stream.Meter) error {
	record := func(l types.Location) error {
		if err := rec.RecordLocation(l); err != nil {
			if !errors.Is(err, tracking.ErrDuplicate) {
				slog.Warn("Skipping location", "error", err)
			}
			meter.Drop()
			return nil
		}
		meter.Mark(l.Date)
		return nil
	}
	lines, readErr := stream.Lines(ctx, r)
	for {
		var line []byte
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			return readErr()
		}
		err := types.ScanJSONMessages(bytes.NewReader(line), func(msg json.RawMessage) error {
			return types.DecodeLocations(msg, record)
		})
		if err != nil {
			slog.Warn("Skipping line", "error", err)
			meter.Drop()
		}
	}
}

func importInclines(ctx context.Context, st *store.Store, r io.Reader, meter *stream.Meter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	timed := func(in types.Incline) bool {
		if in.Time.IsZero() {
			meter.Drop()
			return false
		}
		return true
	}
	withID := func(in types.Incline) types.Incline {
		if in.ID == "" {
			in.ID = uuid.New().String()
		}
		return in
	}
	inclines := stream.Transform(ctx, withID,
		stream.Filter(ctx, timed,
			stream.NDJSON[types.Incline](ctx, r)))
	for in := range inclines {
		if err := st.Append(in); err != nil {
			return err
		}
		meter.Mark(in.Time)
	}
	return ctx.Err()
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&optImportKind, "kind", types.KindLocation.String(), "Record kind: locations or inclines")
}
