package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
)

func newQueryCmd() *cobra.Command {
	var (
		idx    indexFlags
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "query <words>...",
		Short: "Search the given indexes and print ranked results",
		Long: `Search the given indexes and print ranked results.

A leading "-" excludes pages containing a word: "network -tomography".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, scorer, err := idx.load(cmd.Context())
			if err != nil {
				return err
			}
			res, err := executor.NewMulti(reg, scorer, 0).Search(cmd.Context(), strings.Join(args, " "), limit, nil)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			renderResults(cmd.OutOrStdout(), res)
			return nil
		},
	}
	idx.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results to print (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	return cmd
}

func newObjectCmd() *cobra.Command {
	var (
		idx    indexFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "object <name>",
		Short: "Resolve an API object such as qnetvo.NetworkAnsatz to its page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, scorer, err := idx.load(cmd.Context())
			if err != nil {
				return err
			}
			hits, err := executor.NewMulti(reg, scorer, 0).Lookup(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), hits)
			}
			renderObjects(cmd.OutOrStdout(), hits)
			return nil
		},
	}
	idx.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print matches as JSON")
	return cmd
}
