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
	"log"
	"log/slog"

	"github.com/rotblauer/trailhud/app"
	"github.com/rotblauer/trailhud/common"
	"github.com/rotblauer/trailhud/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the HUD daemon",
	Long: `Run reads the accelerometer and location sources, records readings,
and serves the HUD over HTTP and websocket.

Sources:

  --accel.source     sim | push | replay:<path>
  --location.source  sim | push | replay:<path> | nmea:<path> | serial:<device>

A replay path of "-" reads stdin. Push sources are fed by POST /acceleration
and POST /location.

Examples:

  trailhud run
  trailhud run --location.source serial:/dev/ttyACM0 --route moab
  trailhud run --accel.source push --location.source push --sync.url http://localhost:3000/
`,
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()

		ctx, cancel := common.InterruptContext(cmd.Context())
		defer cancel()

		a, err := app.New(ctx, config)
		if err != nil {
			log.Fatalln(err)
		}
		if err := a.Run(ctx); err != nil {
			log.Fatalln(err)
		}
		slog.Info("Bye")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	defaults := params.DefaultConfig()
	flags := runCmd.Flags()

	flags.String("accel.source", defaults.Accelerometer.Source, "Accelerometer source")
	flags.Duration("accel.interval", defaults.Accelerometer.Interval, "Accelerometer sampling interval")
	flags.String("location.source", defaults.Location.Source, "Location source")
	flags.Int("location.baud", defaults.Location.Baud, "Serial GPS baud rate")
	flags.Float64("estimator.step", defaults.Estimator.Step, "Angle resolution in degrees")
	flags.String("route", "", "Start tracking a named route")
	flags.String("sync.url", defaults.Sync.URL, "Collector base URL to forward locations to")
	flags.String("influx.url", defaults.Influx.URL, "InfluxDB URL to export readings to")
	flags.String("influx.org", defaults.Influx.Org, "InfluxDB organization")
	flags.String("influx.bucket", defaults.Influx.Bucket, "InfluxDB bucket")
	flags.String("address", defaults.Web.Address, "HTTP address to listen on")

	// Flag names mirror config keys, except address which lives under web.
	flags.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if key == "address" {
			key = "web.address"
		}
		_ = viper.BindPFlag(key, f)
	})
}
