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
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotblauer/trailhud/params"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optDatadir string
var optConfigFile string
var optVerbosity int
var optLogJSON bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trailhud",
	Short: "Off-road heads-up display daemon",
	Long: `trailhud reads an accelerometer and a GPS, derives pitch, roll and speed,
records them, and serves the latest values to gauge clients.

Configuration comes from flags, TRAILHUD_* environment variables (a .env file
in the working directory is loaded first), and an optional trailhud.yaml in
the data directory, in that order of precedence.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&optDatadir, "datadir", params.DefaultDatadirRoot, "Data directory")
	pFlags.StringVar(&optConfigFile, "config", "", "Config file (default is <datadir>/trailhud.yaml)")
	pFlags.IntVar(&optVerbosity, "verbosity", int(slog.LevelInfo), "Log level (-4 debug, 0 info, 4 warn, 8 error)")
	pFlags.BoolVar(&optLogJSON, "log-json", false, "Log as JSON")

	_ = viper.BindPFlag("datadir", pFlags.Lookup("datadir"))
}

// initConfig reads in a .env file, ENV variables and the config file, if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	viper.SetEnvPrefix(params.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("web.token", params.TokenEnvName, params.EnvPrefix+"_WEB_TOKEN")
	_ = viper.BindEnv("influx.token", params.EnvPrefix+"_INFLUX_TOKEN")

	if optConfigFile != "" {
		viper.SetConfigFile(params.ExpandPath(optConfigFile))
	} else {
		viper.AddConfigPath(params.ExpandPath(viper.GetString("datadir")))
		viper.SetConfigName(params.ConfigName)
		viper.SetConfigType("yaml")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if optConfigFile != "" || !errors.As(err, &notFound) {
			log.Fatalln("Failed to read config:", err)
		}
	}
}

// loadConfig is the effective configuration: defaults overlaid
// with config file, environment and flags.
func loadConfig() *params.Config {
	config := params.DefaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalln("Failed to decode config:", err)
	}
	config.DataDir = params.ExpandPath(config.DataDir)
	if !filepath.IsAbs(config.DataDir) {
		if abs, err := filepath.Abs(config.DataDir); err == nil {
			config.DataDir = abs
		}
	}
	return config
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	opts := &slog.HandlerOptions{Level: slog.Level(optVerbosity)}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if optLogJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler).With("cmd", cmd.Name()))
}
