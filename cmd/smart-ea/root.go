package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/smart-ea/internal/app"
	"github.com/ducminhle1904/smart-ea/internal/config"
	"github.com/ducminhle1904/smart-ea/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "smart-ea",
	Short: "Strategy selection and risk sizing for a trading EA",
	Long: `Smart EA picks a trading strategy from market regime, news sentiment and a
knowledge graph, sizes positions through an adaptive risk engine and keeps
both tuned from realized trade outcomes.

Configuration comes from the environment (optionally a .env file) and an
optional YAML file layered on top.`,
	SilenceUsage: true,
}

var (
	envFile    string
	configFile string
	quiet      bool
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to .env file")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not mirror logs to stdout")
}

// loadConfig resolves the configuration from env file, environment and YAML.
func loadConfig() (*config.Config, error) {
	if _, err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if configFile != "" {
		if err := config.LoadFile(configFile, cfg); err != nil {
			return nil, err
		}
	}
	if quiet {
		cfg.LogConsole = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads configuration and wires the application with a file logger.
// Callers must Close it.
func newApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg, nil)
}

// silentApp wires the application with a discarding logger, for commands
// whose stdout is the result.
func silentApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg, logger.Discard())
}
