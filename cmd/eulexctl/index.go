package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/eulex/internal/corpus"
	"github.com/kailas-cloud/eulex/internal/lexical"
)

func newIndexCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build or load the lexical indexes",
		Long: `Load the corpus and open the body and title indexes. Indexes in the
configured directory are reused when they match the corpus and rebuilt
otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.loadConfig(); err != nil {
				return err
			}
			ctx := cmd.Context()

			c, err := corpus.Load(ctx, o.cfg.Corpus.Path, o.logger)
			if err != nil {
				return err //nolint:wrapcheck // carries the corpus path
			}
			start := time.Now()
			if err := lexical.NewRetriever(c, o.cfg.Index.Dir, o.logger).Open(ctx); err != nil {
				return fmt.Errorf("open indexes: %w", err)
			}

			dir := o.cfg.Index.Dir
			if dir == "" {
				dir = "(memory)"
			}
			fmt.Fprintf(o.stdout, "indexed %d laws into %s in %s\n",
				c.Len(), dir, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
