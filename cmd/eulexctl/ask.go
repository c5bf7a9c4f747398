package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newContextCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "context QUESTION",
		Short: "Print the law context assembled for a question",
		Long: `Run the full retrieval pipeline and print the aggregated law context
that would be handed to the language model.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Pipeline.Retrieve(ctx, strings.Join(args, " "))
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			if o.jsonOutput {
				return o.printJSON(res)
			}
			if res.Query != strings.Join(args, " ") {
				fmt.Fprintf(o.stderr, "searched: %s\n", res.Query)
			}
			fmt.Fprintln(o.stdout, res.Context.Text)
			return nil
		},
	}
}

func newAskCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question from the retrieved law context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ans, err := a.Pipeline.Answer(ctx, strings.Join(args, " "))
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			if o.jsonOutput {
				return o.printJSON(ans)
			}
			fmt.Fprintln(o.stdout, ans.Text)
			if len(ans.Titles) > 0 {
				fmt.Fprintln(o.stdout)
				fmt.Fprintln(o.stdout, "Sources:")
				for _, t := range ans.Titles {
					fmt.Fprintf(o.stdout, "  - %s\n", t)
				}
			}
			return nil
		},
	}
}
