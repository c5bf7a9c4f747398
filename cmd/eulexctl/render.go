package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/usecase/aggregate"
)

func newRenderCmd(o *options) *cobra.Command {
	var (
		titlesPath string
		minWords   int
		maxWords   int
	)

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Aggregate serialized passages into a law context",
		Long: `Read a JSON array of {"celex_id", "filtered_json"} objects, where
filtered_json holds {"articles": [{"id", "text", "score"}]}, and print the
aggregated context. Malformed payloads are repaired when possible and
skipped otherwise. FILE may be "-" for stdin.

Examples:
  eulexctl render passages.json
  eulexctl render --titles titles.json --max-words 2000 - < passages.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var docs []aggregate.SerializedDocument
			if err := readJSON(args[0], cmd.InOrStdin(), &docs); err != nil {
				return err
			}
			titles := map[string]string{}
			if titlesPath != "" {
				if err := readJSON(titlesPath, nil, &titles); err != nil {
					return err
				}
			}

			agg := aggregate.New(minWords, maxWords, o.logger)
			res := agg.AggregateSerialized(cmd.Context(), docs, titles)
			if o.jsonOutput {
				return o.printJSON(res)
			}
			fmt.Fprintln(o.stdout, res.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&titlesPath, "titles", "", "JSON object mapping CELEX id to law title")
	cmd.Flags().IntVar(&minWords, "min-words", domain.DefaultMinPassageWords, "drop passages shorter than this (-1 disables)")
	cmd.Flags().IntVar(&maxWords, "max-words", domain.DefaultMaxContextWords, "total word cap")
	return cmd
}

func readJSON(path string, stdin io.Reader, v any) error {
	var r io.Reader
	if path == "-" && stdin != nil {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
