package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/eulex/internal/corpus"
	"github.com/kailas-cloud/eulex/internal/lexical"
	"github.com/kailas-cloud/eulex/internal/usecase/pipeline"
)

func newSearchCmd(o *options) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Show the fused candidate laws for a query",
		Long: `Run the lexical half of the pipeline: search the body and title
indexes, fuse both rankings and apply the score threshold. The query is
searched as given, without rewriting.

Examples:
  eulexctl search "toy safety requirements"
  eulexctl search --top-k 5 --json "data protection"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.loadConfig(); err != nil {
				return err
			}
			ctx := cmd.Context()

			c, err := corpus.Load(ctx, o.cfg.Corpus.Path, o.logger)
			if err != nil {
				return err //nolint:wrapcheck // carries the corpus path
			}
			k := o.cfg.Retrieval.TopK
			if topK > 0 {
				k = topK
			}
			svc := pipeline.New(
				lexical.NewRetriever(c, o.cfg.Index.Dir, o.logger), c,
				nil, nil, nil, nil,
				pipeline.Config{
					Depth:         o.cfg.Retrieval.Depth,
					FusionI:       o.cfg.Retrieval.FusionI,
					TopK:          k,
					MinScore:      o.cfg.Retrieval.MinScore,
					MinCandidates: o.cfg.Retrieval.MinCandidates,
				},
				o.logger,
			)

			candidates, err := svc.Candidates(ctx, strings.Join(args, " "))
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			if o.jsonOutput {
				return o.printJSON(candidates)
			}
			for _, cand := range candidates {
				fmt.Fprintf(o.stdout, "%2d  %-14s %.4f  %s\n", cand.Rank+1, cand.CelexID, cand.Score, cand.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of fused candidates (default: retrieval.top_k)")
	return cmd
}
