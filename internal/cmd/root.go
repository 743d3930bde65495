// Package cmd provides the CLI entrypoint for hackterm.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hackterm/internal/app"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hackterm",
	Short: "Terminal client for the HackLidoLearn platform",
	Long: `hackterm is a terminal client for the HackLidoLearn cybersecurity
learning platform: browse roadmaps and rooms, work through terminal
labs, run code challenges, submit flags, and climb the leaderboard
without leaving your shell.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Run(ctx)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hackterm:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.String("server", "", "backend origin, e.g. https://learn.example.com")
	flags.Bool("demo", false, "run against a built-in offline demo backend")
	flags.String("content", "", "directory of demo content packs (demo mode only)")
	flags.String("log", "", "append structured JSON logs to this file")
	flags.String("data-dir", "", "override the state directory")
	flags.String("theme", "", "ui theme: matrix, midnight, or amber")
	flags.Bool("debug", false, "verbose ui logging")

	_ = viper.BindPFlag("server", flags.Lookup("server"))
	_ = viper.BindPFlag("demo", flags.Lookup("demo"))
	_ = viper.BindPFlag("content_dir", flags.Lookup("content"))
	_ = viper.BindPFlag("log", flags.Lookup("log"))
	_ = viper.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = viper.BindPFlag("ui.theme", flags.Lookup("theme"))
	_ = viper.BindPFlag("ui.debug", flags.Lookup("debug"))
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "hackterm")
	}
	return filepath.Join(home, ".config", "hackterm")
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(configDir())
	viper.SetEnvPrefix("HACKTERM")
	viper.AutomaticEnv()

	defaults := app.DefaultConfig()
	viper.SetDefault("server", defaults.ServerURL)
	viper.SetDefault("demo", false)
	viper.SetDefault("request_timeout", "30s")
	viper.SetDefault("ui.theme", defaults.UI.StyleVariant)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "hackterm: failed to read config: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig() (app.Config, error) {
	cfg := app.DefaultConfig()
	cfg.ServerURL = viper.GetString("server")
	cfg.Demo = viper.GetBool("demo")
	cfg.ContentDir = viper.GetString("content_dir")
	cfg.LogPath = viper.GetString("log")
	cfg.DataDir = viper.GetString("data_dir")
	cfg.UI.StyleVariant = viper.GetString("ui.theme")
	cfg.UI.Debug = viper.GetBool("ui.debug")
	if timeout := viper.GetString("request_timeout"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid request_timeout %q", timeout)
		}
		cfg.RequestTimeout = d
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
