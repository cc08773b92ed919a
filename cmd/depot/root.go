package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xraph/depot"
	"github.com/xraph/depot/config"
	"github.com/xraph/depot/internal/demo"
	"github.com/xraph/go-utils/log"
)

var (
	version = "dev"
	cfgFile string
	envFile string
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "depot",
	Short:         "Dependency registry demo",
	Long:          `Bootstraps the demo components through the dependency registry and inspects the resulting component graph.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"env file loaded before the environment is read")

	rootCmd.AddCommand(runCmd, graphCmd, watchCmd)
}

// setup loads the configuration and creates an initialized registry.
func setup(ctx context.Context, liveReload bool) (*depot.Registry, config.Config, log.Logger, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, cfg, nil, err
	}

	cfg.Apply()
	demo.EnvFile = envFile

	logger := cfg.Logger()
	opts := append(cfg.RegistryOptions(), depot.WithLogger(logger))
	if liveReload {
		opts = append(opts, depot.WithLiveReload(true))
	}

	r := depot.New(opts...)
	if err := r.Initialize(ctx); err != nil {
		return nil, cfg, logger, fmt.Errorf("initializing registry: %w", err)
	}

	return r, cfg, logger, nil
}
