package main

import (
	"os"

	"github.com/spf13/cobra"

	"offleaf/internal/config"
	"offleaf/internal/logger"
	"offleaf/internal/report"
	"offleaf/internal/types"
)

// cliDefaultLogLevel keeps routine info logs off the terminal unless asked for.
const cliDefaultLogLevel = "warn"

// options holds the persistent flags and the loaded config.
type options struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg *types.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "offleaf-check",
		Short: "Offline checks for LaTeX projects",
		Long: `offleaf-check scans LaTeX sources for math regions, searches and replaces
across a project, flags common misspellings, lists used packages, builds
PDFs with a local TeX engine and summarizes compile logs. Everything runs
locally.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (json, toml or yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", cliDefaultLogLevel, "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newMathCmd(opts),
		newSearchCmd(opts),
		newReplaceCmd(opts),
		newSpellCmd(opts),
		newSuggestCmd(opts),
		newPackagesCmd(opts),
		newLogCmd(opts),
		newCompileCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

// setup installs the stderr logger and loads the configuration.
func (o *options) setup(cmd *cobra.Command) error {
	level, err := logger.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(logger.NewWriterLogger(cmd.ErrOrStderr(), level))

	cm, err := config.NewConfigManager(o.configPath)
	if err != nil {
		return err
	}
	if err := cm.Load(); err != nil {
		return err
	}
	o.cfg = cm.GetConfig()
	return nil
}

// printer writes to the command output, sized and colored for a terminal
// when there is one.
func (o *options) printer(cmd *cobra.Command) *report.Printer {
	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok {
		return report.NewPrinter(f, report.TerminalWidth(f), report.IsTerminal(f) && !o.noColor)
	}
	return report.NewPrinter(out, report.DefaultWidth, false)
}
