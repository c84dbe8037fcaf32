package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"offleaf/internal/report"
	"offleaf/internal/spell"
	"offleaf/internal/types"
)

// fileIssues groups spelling issues of one file for JSON output.
type fileIssues struct {
	FileID string             `json:"file_id"`
	Issues []types.SpellIssue `json:"issues"`
}

// spellFlags are shared by spell and watch.
type spellFlags struct {
	ignore      []string
	unifiedMath bool
}

func (s *spellFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&s.ignore, "ignore", nil, "words to ignore, comma separated")
	cmd.Flags().BoolVar(&s.unifiedMath, "unified-math", false, "also skip math that spans several lines")
}

func (s *spellFlags) checker(cfg *types.Config) (*spell.Checker, *spell.IgnoreList, error) {
	sc := cfg.Spell
	sc.UnifiedMath = sc.UnifiedMath || s.unifiedMath
	checker, err := spell.NewCheckerFromConfig(sc)
	if err != nil {
		return nil, nil, err
	}
	return checker, spell.NewIgnoreList(s.ignore...), nil
}

func newSpellCmd(opts *options) *cobra.Command {
	var (
		sf      spellFlags
		jsonOut bool
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "spell <path>",
		Short: "Flag common misspellings in a file or project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, ignore, err := sf.checker(opts.cfg)
			if err != nil {
				return err
			}
			_, corpus, err := loadCorpus(args[0], opts.cfg)
			if err != nil {
				return err
			}

			var (
				results []fileIssues
				total   int
			)
			for _, f := range corpus {
				issues := ignore.Filter(checker.Check(f.Content))
				if len(issues) == 0 {
					continue
				}
				results = append(results, fileIssues{FileID: f.FileID, Issues: issues})
				total += len(issues)
			}

			if jsonOut {
				if results == nil {
					results = []fileIssues{}
				}
				if err := report.JSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				p := opts.printer(cmd)
				for _, r := range results {
					p.Issues(r.FileID, r.Issues)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d issue(s)\n", total)
			}

			if strict && total > 0 {
				return fmt.Errorf("%d spelling issue(s) found", total)
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when issues are found")
	return cmd
}

func newSuggestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <word>...",
		Short: "Suggest corrections for words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, err := spell.NewCheckerFromConfig(opts.cfg.Spell)
			if err != nil {
				return err
			}
			for _, word := range args {
				suggestions := checker.Suggest(word)
				if len(suggestions) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: (none)\n", word)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", word, strings.Join(suggestions, ", "))
			}
			return nil
		},
	}
}
