package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima/engine"
	"github.com/spaghettifunk/anima/engine/core"
)

const appName = "anima-porter"

type globalOptions struct {
	settingsPath string
	logLevel     string
	metricsAddr  string
}

func main() {
	opts := &globalOptions{settingsPath: defaultSettingsPath()}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Export scene assets and hand them to a Blender or Unreal receiver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.logLevel != "" {
				core.SetLogLevel(core.ParseLogLevel(opts.logLevel))
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.settingsPath, "config", opts.settingsPath, "path of the settings file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides the settings file)")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs, e.g. 127.0.0.1:9464")

	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newPingCmd(opts))
	root.AddCommand(newReceiveCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "porter.toml"
	}
	return filepath.Join(dir, appName, "porter.toml")
}

func (o *globalOptions) applicationConfig() *engine.ApplicationConfig {
	cfg := &engine.ApplicationConfig{
		Name:         appName,
		SettingsPath: o.settingsPath,
	}
	if o.logLevel != "" {
		level := core.ParseLogLevel(o.logLevel)
		cfg.LogLevel = &level
	}
	return cfg
}

// serveMetrics exposes the metrics registry until ctx is done, if asked to.
func (o *globalOptions) serveMetrics(ctx context.Context) error {
	if o.metricsAddr == "" {
		return nil
	}
	_, err := core.ServeMetrics(ctx, o.metricsAddr)
	return err
}
