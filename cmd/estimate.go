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
	"strconv"

	"github.com/rotblauer/trailhud/orientation"
	"github.com/rotblauer/trailhud/params"
	"github.com/spf13/cobra"
)

var optEstimateRaw bool
var optEstimateStep float64

// estimateCmd represents the estimate command
var estimateCmd = &cobra.Command{
	Use:   "estimate X Y Z",
	Short: "Estimate pitch and roll for one acceleration vector",
	Long: `Estimate prints the pitch and roll of one acceleration vector as JSON.

By default X Y Z are gravity-corrected, in m/s^2, eg. an upright device is 0 9.81 0.
With --raw they are raw accelerometer readings in g, eg. 0 -1 0.

Put negative values after --:

  trailhud estimate --raw -- -0.5 -0.866 0
`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		var xyz [3]float64
		for i, arg := range args {
			f, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				log.Fatalln(fmt.Errorf("axis %d: %w", i, err))
			}
			xyz[i] = f
		}
		v := orientation.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		if optEstimateRaw {
			v = orientation.GravityCorrect(v, params.DefaultEstimatorConfig().Gravity)
		}
		out := struct {
			orientation.Vector
			orientation.Attitude
		}{v, orientation.NewEstimator(optEstimateStep).Estimate(v)}

		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(out); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)
	estimateCmd.Flags().BoolVar(&optEstimateRaw, "raw", false, "Arguments are raw readings in g")
	estimateCmd.Flags().Float64Var(&optEstimateStep, "step", params.DefaultEstimatorConfig().Step, "Angle resolution in degrees")
}
