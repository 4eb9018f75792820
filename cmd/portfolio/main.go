package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-portfolio/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "portfolio",
		Short:         "Portfolio profile editor",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a YAML config file (default: ./portfolio.yaml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to a .env file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	loadOpts := []config.Option{config.WithEnvFile(o.envFile)}
	if o.configFile != "" {
		loadOpts = append(loadOpts, config.WithFile(o.configFile))
	}
	return config.Load(loadOpts...)
}

func newLogger(cfg config.LogConfig) *glog.BaseLogger {
	level := glog.Info
	switch cfg.Level {
	case "trace":
		level = glog.Trace
	case "debug":
		level = glog.Debug
	case "warn":
		level = glog.Warn
	case "error":
		level = glog.Error
	}

	if cfg.Format == "json" {
		return glog.NewLogger(
			glog.WithLoggerTypeJSON(),
			glog.WithLevel(level),
			glog.WithName("portfolio"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}

	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName("portfolio"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}
