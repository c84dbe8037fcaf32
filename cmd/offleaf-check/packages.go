package main

import (
	"github.com/spf13/cobra"

	"offleaf/internal/compilelog"
	"offleaf/internal/packages"
	"offleaf/internal/report"
	"offleaf/internal/workspace"
)

func newPackagesCmd(opts *options) *cobra.Command {
	var (
		check     bool
		essential bool
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "packages [file]",
		Short: "List packages used by a LaTeX file",
		Long: `List the packages loaded with \usepackage and \RequirePackage. With --check,
each package is looked up with kpsewhich. With --essential, the built-in list
of commonly needed packages is checked instead of a file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if essential {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var res packages.Resolution
			if essential {
				check = true
				res = packages.ResolveNames(cmd.Context(), packages.Essential(), packages.KpsewhichLocator{})
			} else {
				content, _, err := workspace.ReadFile(args[0])
				if err != nil {
					return err
				}
				detected := packages.Detect(content)
				if check {
					res = packages.Resolve(cmd.Context(), detected, packages.KpsewhichLocator{})
				} else {
					res = packages.Resolution{Packages: detected}
				}
			}

			if jsonOut {
				return report.JSON(cmd.OutOrStdout(), res)
			}
			opts.printer(cmd).Packages(res, check)
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "check whether each package is installed")
	cmd.Flags().BoolVar(&essential, "essential", false, "check the essential package list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func newLogCmd(opts *options) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "log <file.log>",
		Short: "Summarize errors and warnings of a TeX log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, _, err := workspace.ReadFile(args[0])
			if err != nil {
				return err
			}
			res := compilelog.Parse(content)

			if jsonOut {
				return report.JSON(cmd.OutOrStdout(), res)
			}
			opts.printer(cmd).Log(res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}
