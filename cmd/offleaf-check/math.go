package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"offleaf/internal/mathscan"
	"offleaf/internal/report"
	"offleaf/internal/types"
	"offleaf/internal/workspace"
)

func newMathCmd(opts *options) *cobra.Command {
	var (
		at      string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "math <file>",
		Short: "List math regions of a LaTeX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, _, err := workspace.ReadFile(args[0])
			if err != nil {
				return err
			}
			spans := mathscan.Scan(content)

			if at != "" {
				line, col, err := parsePosition(at)
				if err != nil {
					return err
				}
				span := mathscan.FindSpanAtPosition(spans, line-1, col-1)
				if span == nil {
					if jsonOut {
						return report.JSON(cmd.OutOrStdout(), nil)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "no math at %d:%d\n", line, col)
					return nil
				}
				spans = []types.MathSpan{*span}
			}

			if jsonOut {
				return report.JSON(cmd.OutOrStdout(), spans)
			}
			opts.printer(cmd).Spans(spans)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "only show the region containing line:col (1-based)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

// parsePosition parses "line:col" with both parts 1-based.
func parsePosition(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, types.NewAppErrorWithDetails(types.ErrInvalidInput, "position must be line:col", s, nil)
	}
	line, err1 := strconv.Atoi(parts[0])
	col, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || line < 1 || col < 1 {
		return 0, 0, types.NewAppErrorWithDetails(types.ErrInvalidInput, "position must be line:col", s, nil)
	}
	return line, col, nil
}
