package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"offleaf/internal/logger"
	"offleaf/internal/workspace"
)

func newWatchCmd(opts *options) *cobra.Command {
	var sf spellFlags

	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Re-check spelling whenever a file is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, ignore, err := sf.checker(opts.cfg)
			if err != nil {
				return err
			}
			ws, err := workspace.Open(args[0], opts.cfg.Workspace)
			if err != nil {
				return err
			}
			w, err := ws.Watch(workspace.DefaultDebounce)
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			p := opts.printer(cmd)
			fmt.Fprintf(out, "watching %s\n", ws.Root())

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case err, ok := <-w.Errors():
					if !ok {
						return nil
					}
					logger.Warn("watch error", logger.Err(err))
				case path, ok := <-w.Changes():
					if !ok {
						return nil
					}
					fileID, inside := ws.FileID(path)
					if !inside {
						continue
					}
					content, _, err := workspace.ReadFile(path)
					if err != nil {
						logger.Warn("failed to read changed file", logger.String("path", path), logger.Err(err))
						continue
					}
					issues := ignore.Filter(checker.Check(content))
					p.Issues(fileID, issues)
					fmt.Fprintf(out, "%s: %d issue(s)\n", fileID, len(issues))
				}
			}
		},
	}

	sf.register(cmd)
	return cmd
}
