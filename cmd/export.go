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
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/trailhud/flat"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/types"
	"github.com/spf13/cobra"
)

var optExportKind string
var optExportOut string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records to a gzipped archive",
	Long: `Export writes every stored record of a kind, one per line.

Locations are written as GeoJSON point features, inclines as plain JSON.
By default the archive replaces <datadir>/exports/<kind>.{geojson,ndjson}.gz.
With --out - records are written uncompressed to stdout.
`,
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		kind, ok := types.ParseKind(optExportKind)
		if !ok || kind == types.KindRoute {
			log.Fatalln("Invalid kind:", optExportKind)
		}

		st, err := store.Open(params.StorePath(config.DataDir), true)
		if err != nil {
			log.Fatalln(err)
		}
		defer st.Close()

		var w io.WriteCloser
		target := "stdout"
		if optExportOut == "-" {
			w = nopWriteCloser{os.Stdout}
		} else {
			name := params.LocationsGZ
			if kind == types.KindIncline {
				name = params.InclinesGZ
			}
			dir := flat.NewFlatWithRoot(config.DataDir).Joining(params.ExportsDir)
			if optExportOut != "" {
				dir = flat.NewFlatWithRoot(filepath.Dir(params.ExpandPath(optExportOut)))
				name = filepath.Base(optExportOut)
			}
			gz, err := dir.NamedGZWriter(name, flat.TruncatingGZFileWriterConfig())
			if err != nil {
				log.Fatalln(err)
			}
			w = gz
			target = gz.Path()
		}

		n, err := exportRecords(st, kind, w)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Fatalln(err)
		}
		slog.Info("Exported", "kind", kind, "n", humanize.Comma(int64(n)), "to", target)
	},
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func exportRecords(st *store.Store, kind types.Kind, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	err := st.ForEach(kind, func(data []byte) error {
		n++
		if kind != types.KindLocation {
			if _, err := w.Write(data); err != nil {
				return err
			}
			_, err := io.WriteString(w, "\n")
			return err
		}
		l := types.Location{}
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		return enc.Encode(l.Feature())
	})
	return n, err
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&optExportKind, "kind", types.KindLocation.String(), "Record kind: locations or inclines")
	exportCmd.Flags().StringVar(&optExportOut, "out", "", `Output file, or "-" for stdout`)
}
