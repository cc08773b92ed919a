package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xraph/depot"
	"github.com/xraph/depot/internal/demo"
	"github.com/xraph/depot/watch"
	"github.com/xraph/go-utils/log"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Run the service with live reload of changed modules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, cfg, logger, err := setup(ctx, true)
		if err != nil {
			return err
		}

		root := depot.SourceRoot()
		if len(args) == 1 {
			root = args[0]
		}

		wcfg := watch.DefaultConfig(root)
		wcfg.DebounceDur = cfg.WatchDebounce
		wcfg.Logger = logger
		wcfg.Filter = func(path string) bool {
			return watch.GoSources(path) || filepath.Base(path) == filepath.Base(envFile)
		}

		w, err := watch.New(wcfg)
		if err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()

		changes, err := w.Start()
		if err != nil {
			return err
		}

		svc, err := depot.Get[*demo.Service](ctx, r)
		if err != nil {
			return err
		}

		go work(ctx, cmd, svc)

		logger.Info("watching for changes", log.String("root", root))

		err = watch.Run(ctx, changes, reloadModules(r), logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "pause between work iterations")
}

// reloadModules maps env file changes to the config module before reloading.
func reloadModules(r *depot.Registry) watch.ReloadFunc {
	reload := watch.RegistryReload(r)

	return func(ctx context.Context, paths []string) error {
		modules := make([]string, 0, len(paths))
		for _, path := range paths {
			if filepath.Base(path) == filepath.Base(envFile) {
				path = demo.ConfigModule
			}

			modules = append(modules, path)
		}

		return reload(ctx, modules)
	}
}

func work(ctx context.Context, cmd *cobra.Command, svc *demo.Service) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintln(cmd.OutOrStdout(), green("work:"), svc.DoWork())
		}
	}
}
