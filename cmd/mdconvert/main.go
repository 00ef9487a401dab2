// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mdconvert CLI.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mdconvert/internal/capability"
	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/internal/converters"
	"github.com/pdiddy/mdconvert/internal/fetch"
	"github.com/pdiddy/mdconvert/internal/secrets"
	"github.com/pdiddy/mdconvert/internal/transcribe"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the mdconvert CLI.
var rootCmd = &cobra.Command{
	Use:   "mdconvert",
	Short: "Convert documents, web pages, spreadsheets, images, and audio to Markdown",
	Long: `mdconvert converts files, streams, and URLs to Markdown. Each input is
dispatched to the most specific converter that accepts it; generic converters
(HTML, Markdown, plain text) are tried last.

Optional backends (exiftool metadata, cloud and local speech transcription,
pdftotext, the pandoc container image, image descriptions) are probed once at
startup. Run "mdconvert capabilities" to see which are available.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mdconvert.yaml or ~/.config/mdconvert/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("exiftool-path", "", "explicit exiftool location")

	_ = viper.BindPFlag("metadata.exiftool_path", rootCmd.PersistentFlags().Lookup("exiftool-path"))
}

func initConfig() {
	_ = godotenv.Load()

	// Defaults are loaded as a base layer so every key is known to viper
	// and can be overridden from the environment.
	base, err := yaml.Marshal(types.DefaultConfig())
	if err == nil {
		viper.SetConfigType("yaml")
		_ = viper.MergeConfig(bytes.NewReader(base))
	}
	viper.SetDefault("metadata.exiftool_path", "")
	viper.SetDefault("transcription.cloud.base_url", "")
	viper.SetDefault("vision.prompt", "")

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mdconvert")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mdconvert"))
		}
	}

	viper.SetEnvPrefix("MDCONVERT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.MergeInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged viper settings into a validated Config.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ExpandPaths()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from cfg. verbose forces debug.
func newLogger(cfg types.Config, verbose bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// app holds the wiring shared by subcommands.
type app struct {
	cfg    types.Config
	caps   capability.Set
	engine *convert.Engine
	logger *slog.Logger
}

// newApp loads config, probes capabilities, and registers converters.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(cfg, verbose)
	slog.SetDefault(logger)

	openAIKey := loadedSecrets.Get(secrets.OpenAIKey)
	anthropicKey := loadedSecrets.Get(secrets.AnthropicKey)

	caps := capability.Probe(ctx, cfg,
		capability.WithCredentials(capability.Credentials{
			OpenAI:    openAIKey != "",
			Anthropic: anthropicKey != "",
		}),
		capability.WithLogger(logger),
	)
	for _, a := range caps.Advisories {
		logger.Warn("configuration advisory", "capability", a.Capability, "message", a.Message)
	}

	engine := convert.New(
		convert.WithFetcher(fetch.New(cfg.HTTP, nil)),
		convert.WithArchiveLimits(cfg.Archive),
		convert.WithStyleMap(cfg.StyleMap),
		convert.WithLogger(logger),
	)

	deps := converters.Deps{Config: cfg, Caps: caps, Logger: logger}
	if caps.CloudTranscription {
		deps.CloudClient = transcribe.NewCloudClient(openAIKey, cfg.Transcription.Cloud.BaseURL)
	}
	if caps.Vision {
		d, err := converters.NewAnthropicDescriber(anthropicKey, cfg.Vision)
		if err != nil {
			logger.Warn("image descriptions disabled", "error", err)
		} else {
			deps.Describer = d
		}
	}
	if err := converters.RegisterDefaults(engine, deps); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, caps: caps, engine: engine, logger: logger}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
