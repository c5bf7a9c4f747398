package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/app"
	"github.com/kailas-cloud/eulex/internal/config"
	logpkg "github.com/kailas-cloud/eulex/internal/logger"
)

// options holds the global flags and the lazily loaded configuration.
type options struct {
	configPath string
	env        string
	logLevel   string
	jsonOutput bool

	stdout io.Writer
	stderr io.Writer

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &options{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "eulexctl",
		Short: "Query the EU law retrieval pipeline",
		Long: `eulexctl runs the EU law retrieval pipeline without the HTTP server.

Example usage:
  eulexctl index                                  # Build or load the lexical indexes
  eulexctl search "toy safety"                    # Show the fused candidate laws
  eulexctl context "Are toys required to be safe?" # Print the assembled law context
  eulexctl ask "Are toys required to be safe?"     # Answer from the law context
  eulexctl render passages.json                   # Aggregate serialized passages`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			l, err := logpkg.NewCLILogger(o.stderr, o.logLevel)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			o.logger = l
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (default: config/<env>.yaml)")
	root.PersistentFlags().StringVar(&o.env, "env", "", "environment name (default: $ENV or local)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error (default: warn)")
	root.PersistentFlags().BoolVar(&o.jsonOutput, "json", false, "output as JSON")

	root.AddCommand(
		newIndexCmd(o),
		newSearchCmd(o),
		newContextCmd(o),
		newAskCmd(o),
		newRenderCmd(o),
		newVersionCmd(o),
	)
	return root
}

// loadConfig reads the config file named by --config, or the one for --env.
func (o *options) loadConfig() error {
	var err error
	if o.configPath != "" {
		o.cfg, err = config.LoadFile(o.configPath)
	} else {
		env := o.env
		if env == "" {
			env = config.GetEnv()
		}
		o.cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	o.logger.Debug("Configuration loaded",
		zap.String("corpus", o.cfg.Corpus.Path),
		zap.String("index_dir", o.cfg.Index.Dir),
		zap.String("cache_driver", o.cfg.Cache.Driver),
	)
	return nil
}

// buildApp loads the config and assembles the full pipeline.
func (o *options) buildApp(ctx context.Context) (*app.App, error) {
	if err := o.loadConfig(); err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, o.cfg, o.logger)
	if err != nil {
		return nil, fmt.Errorf("assemble pipeline: %w", err)
	}
	return a, nil
}

func (o *options) printJSON(v any) error {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
