// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package main is the entry point for the fileconvert CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	fileconvert "github.com/nicholasgasior/fileconvert-go"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fileconvert",
	Short: "Convert files between formats",
	Long: `fileconvert converts documents, spreadsheets, structured data and images
between formats: CSV and spreadsheets to JSON, JSON to CSV, office documents,
HTML and plain text to Markdown, PDF to text, and images to PNG or JPEG.

Files can be converted locally with "convert" or through an HTTP service
started with "serve".`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fileconvert.yaml or ~/.config/fileconvert/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("keep-data-uris", false, "keep full base64-encoded data URIs in HTML output")
	rootCmd.PersistentFlags().Bool("no-infer-numbers", false, "keep numeric-looking CSV cells as strings")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("keep-data-uris", rootCmd.PersistentFlags().Lookup("keep-data-uris"))
	viper.BindPFlag("no-infer-numbers", rootCmd.PersistentFlags().Lookup("no-infer-numbers"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fileconvert")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fileconvert"))
		}
	}

	viper.SetEnvPrefix("FILECONVERT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the configured level.
func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newEngine builds the conversion engine from the configured options.
func newEngine(logger *slog.Logger) *fileconvert.Engine {
	return fileconvert.New(
		fileconvert.WithLogger(logger),
		fileconvert.WithNumberInference(!viper.GetBool("no-infer-numbers")),
		fileconvert.WithKeepDataURIs(viper.GetBool("keep-data-uris")),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
