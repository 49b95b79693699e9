package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/stlcheck/internal/checker"
	"github.com/philipparndt/stlcheck/internal/logger"
	"github.com/philipparndt/stlcheck/pkg/watcher"
)

func newWatchCmd() *cobra.Command {
	flags := &checkFlags{}
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-run the check whenever an STL file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
			if err != nil {
				return err
			}
			defer logger.Sync(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(args) == 0 && flags.inputDir == "" {
				flags.inputDir = "."
			}
			watchPaths := args
			if len(watchPaths) == 0 {
				watchPaths = []string{flags.inputDir}
			}

			fw, err := watcher.NewFileWatcher(debounce, checker.IsMeshFile, log)
			if err != nil {
				return err
			}
			defer fw.Close()
			if err := fw.Add(watchPaths); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			check := func() {
				if _, err := runCheck(ctx, out, cfg, log, flags, args); err != nil {
					log.Error("check failed", zap.Error(err))
				}
			}

			check()
			fw.Start(ctx, func(changed []string) {
				log.Info("files changed, checking again", zap.Strings("files", changed))
				check()
			})
			log.Info("watching for changes", zap.Strings("paths", watchPaths))

			<-ctx.Done()
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before checking again")
	return cmd
}
