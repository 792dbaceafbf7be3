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
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/store"
	"github.com/rotblauer/trailhud/types"
	"github.com/spf13/cobra"
)

var optRoutesGeoJSON bool

// routesCmd represents the routes command
var routesCmd = &cobra.Command{
	Use:   "routes [name]",
	Short: "List routes, or summarize one",
	Long: `Without a name, routes lists every tracked route.
With a name, it prints the route summary as JSON, or with --geojson
the route line and its locations as a FeatureCollection.
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		st, err := store.Open(params.StorePath(config.DataDir), true)
		if err != nil {
			log.Fatalln(err)
		}
		defer st.Close()

		if len(args) == 0 {
			routes, err := st.Routes()
			if err != nil {
				log.Fatalln(err)
			}
			printRoutes(routes)
			return
		}

		route, locs, inclines, err := st.QueryRoute(args[0])
		if err != nil {
			log.Fatalln(err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if optRoutesGeoJSON {
			fc := geojson.NewFeatureCollection()
			if line := types.LineFeature(route, locs); line != nil {
				fc.Append(line)
			}
			for _, l := range locs {
				fc.Append(l.Feature())
			}
			err = enc.Encode(fc)
		} else {
			err = enc.Encode(types.Summarize(route, locs, inclines))
		}
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func printRoutes(routes []types.Route) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTARTED\tDURATION")
	for _, r := range routes {
		duration := "active"
		if !r.Active() {
			duration = r.End.Sub(r.Start).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, humanize.Time(r.Start), duration)
	}
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().BoolVar(&optRoutesGeoJSON, "geojson", false, "Print the route as GeoJSON")
}
