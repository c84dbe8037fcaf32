package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"offleaf/internal/report"
	"offleaf/internal/search"
	"offleaf/internal/types"
	"offleaf/internal/workspace"
)

// queryFlags are shared by search and replace.
type queryFlags struct {
	regex         bool
	caseSensitive bool
	max           int
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&q.regex, "regex", false, "treat the pattern as a regular expression")
	cmd.Flags().BoolVar(&q.caseSensitive, "case-sensitive", false, "match case")
	cmd.Flags().IntVar(&q.max, "max", 0, "stop after this many matches (0 uses the config value)")
}

// query builds the search query. Flags given on the command line override
// the config defaults, in both directions.
func (q *queryFlags) query(cmd *cobra.Command, pattern string, cfg *types.Config) search.Query {
	query := search.Query{
		Pattern:       pattern,
		UseRegex:      cfg.Search.UseRegex,
		CaseSensitive: cfg.Search.CaseSensitive,
		MaxResults:    q.max,
	}
	if cmd.Flags().Changed("regex") {
		query.UseRegex = q.regex
	}
	if cmd.Flags().Changed("case-sensitive") {
		query.CaseSensitive = q.caseSensitive
	}
	if query.MaxResults == 0 {
		query.MaxResults = cfg.Search.MaxResults
	}
	return query
}

// loadCorpus opens path as a workspace and reads its sources.
func loadCorpus(path string, cfg *types.Config) (*workspace.Workspace, []types.FileBuffer, error) {
	ws, err := workspace.Open(path, cfg.Workspace)
	if err != nil {
		return nil, nil, err
	}
	corpus, err := ws.Load()
	if err != nil {
		return nil, nil, err
	}
	return ws, corpus, nil
}

func newSearchCmd(opts *options) *cobra.Command {
	var (
		q       queryFlags
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "search <path> <pattern>",
		Short: "Search a file or project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, corpus, err := loadCorpus(args[0], opts.cfg)
			if err != nil {
				return err
			}
			matches, err := search.Find(corpus, q.query(cmd, args[1], opts.cfg))
			if err != nil {
				return err
			}

			if jsonOut {
				if matches == nil {
					matches = []types.SearchMatch{}
				}
				return report.JSON(cmd.OutOrStdout(), matches)
			}
			opts.printer(cmd).Matches(matches)
			return nil
		},
	}

	q.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func newReplaceCmd(opts *options) *cobra.Command {
	var (
		q      queryFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "replace <path> <pattern> <replacement>",
		Short: "Replace every match in a file or project",
		Long: `Replace every match in a file or project. Each changed file is backed up
before it is written, in its original encoding.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, corpus, err := loadCorpus(args[0], opts.cfg)
			if err != nil {
				return err
			}
			matches, err := search.Find(corpus, q.query(cmd, args[1], opts.cfg))
			if err != nil {
				return err
			}
			updated := search.ReplaceAll(corpus, matches, args[2])

			p := opts.printer(cmd)
			p.Diffs(workspace.Preview(corpus, updated))
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d match(es), dry run\n", len(matches))
				return nil
			}

			written, err := ws.Apply(corpus, updated)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d file(s)\n", len(written))
			return err
		},
	}

	q.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without writing")
	return cmd
}
