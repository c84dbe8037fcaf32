package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"offleaf/internal/compiler"
	"offleaf/internal/logger"
	"offleaf/internal/report"
	"offleaf/internal/types"
)

func newCompileCmd(opts *options) *cobra.Command {
	var (
		engine  string
		command string
		output  string
		check   bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "compile [path]",
		Short: "Build a file or project into a PDF",
		Long: `Build a file or project with a local TeX engine, running it twice so
references resolve, and summarize the errors and warnings of the log. The main
document is main.tex, or the first file with \documentclass. The PDF is written
next to the sources unless --output is given. With --check, report which
engines are installed instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if check {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if engine == "" {
				engine = opts.cfg.Compile.Engine
			}
			c := compiler.New(time.Duration(opts.cfg.Compile.TimeoutSeconds) * time.Second)
			if command != "" {
				c.Commands = map[string]string{engine: command}
			}

			if check {
				installed := c.CheckInstallation(cmd.Context())
				if jsonOut {
					return report.JSON(cmd.OutOrStdout(), installed)
				}
				for _, e := range compiler.Engines() {
					state := "missing"
					if installed[e] {
						state = "ok"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s\n", e, state)
				}
				return nil
			}

			ws, corpus, err := loadCorpus(args[0], opts.cfg)
			if err != nil {
				return err
			}
			res, err := c.Compile(cmd.Context(), corpus, engine)
			if err != nil {
				return err
			}
			if dir := res.Dir; dir != "" {
				defer func() {
					if err := os.RemoveAll(dir); err != nil {
						logger.Warn("failed to remove build directory", logger.String("dir", dir), logger.Err(err))
					}
				}()
			}

			if res.Success {
				dest := output
				if dest == "" {
					dest = filepath.Join(sourceDir(ws.Root()), filepath.Base(res.PDFPath))
				}
				if err := copyFile(res.PDFPath, dest); err != nil {
					return err
				}
				res.PDFPath = dest
			}

			if jsonOut {
				res.Dir = ""
				if err := report.JSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				opts.printer(cmd).Log(res.Diagnostics)
				if res.Success {
					fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", res.PDFPath)
				}
			}
			if !res.Success {
				return types.NewAppError(types.ErrCompile, fmt.Sprintf("%s produced no PDF", engine), nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "TeX engine: xelatex, pdflatex or lualatex (default from config)")
	cmd.Flags().StringVar(&command, "command", "", "executable to run for the engine (default: the engine name)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "where to write the PDF")
	cmd.Flags().BoolVar(&check, "check", false, "report which TeX engines are installed")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

// sourceDir is root itself for a project, or the directory of a single file.
func sourceDir(root string) string {
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return filepath.Dir(root)
	}
	return root
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return types.NewAppError(types.ErrIO, "failed to read PDF", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return types.NewAppErrorWithDetails(types.ErrIO, "failed to write PDF", dst, err)
	}
	return nil
}
