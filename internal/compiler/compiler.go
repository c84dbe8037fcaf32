// Package compiler builds a corpus into a PDF with a local TeX engine and
// reports the diagnostics of the run.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"offleaf/internal/compilelog"
	"offleaf/internal/logger"
	"offleaf/internal/types"
)

const (
	// EngineXeLaTeX is the xelatex engine
	EngineXeLaTeX = "xelatex"
	// EnginePDFLaTeX is the pdflatex engine
	EnginePDFLaTeX = "pdflatex"
	// EngineLuaLaTeX is the lualatex engine
	EngineLuaLaTeX = "lualatex"
)

// DefaultEngine is used when no engine is requested.
const DefaultEngine = EngineXeLaTeX

// DefaultTimeout bounds a single compilation pass
const DefaultTimeout = 5 * time.Minute

// DefaultVersionTimeout bounds a single "--version" call of CheckInstallation
const DefaultVersionTimeout = 10 * time.Second

// passes is the number of engine runs; the second resolves references.
const passes = 2

// MainFile is the document compiled when the corpus has one.
const MainFile = "main.tex"

// Engines lists the engines CheckInstallation looks for, in display order.
func Engines() []string {
	return []string{EngineXeLaTeX, EnginePDFLaTeX, EngineLuaLaTeX}
}

func knownEngine(engine string) bool {
	for _, e := range Engines() {
		if e == engine {
			return true
		}
	}
	return false
}

// Result is the outcome of a compilation.
type Result struct {
	Success bool   `json:"success"`
	Engine  string `json:"engine"`
	// Dir is the build directory holding the PDF. It is removed when the
	// compilation fails; otherwise the caller owns it, see Cleanup.
	Dir         string            `json:"dir,omitempty"`
	PDFPath     string            `json:"pdf_path,omitempty"`
	Log         string            `json:"log"`
	Diagnostics compilelog.Result `json:"diagnostics"`
}

// Cleanup removes the build directory.
func (r *Result) Cleanup() error {
	if r == nil || r.Dir == "" {
		return nil
	}
	err := os.RemoveAll(r.Dir)
	r.Dir, r.PDFPath = "", ""
	return err
}

// Compiler runs TeX engines.
type Compiler struct {
	// Commands maps an engine name to the executable run for it. Engines not
	// listed run under their own name.
	Commands map[string]string
	// Timeout bounds each pass. Defaults to DefaultTimeout.
	Timeout time.Duration
	// TempDir is where build directories are created. Defaults to os.TempDir.
	TempDir string
}

// New creates a Compiler with a per-pass timeout.
func New(timeout time.Duration) *Compiler {
	return &Compiler{Timeout: timeout}
}

func (c *Compiler) command(engine string) string {
	if cmd, ok := c.Commands[engine]; ok && cmd != "" {
		return cmd
	}
	return engine
}

func (c *Compiler) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Compile writes corpus into a fresh build directory and runs engine on the
// main document twice. A failing first pass stops the build. The log of the
// last pass run is parsed into diagnostics, and the build succeeds when the
// PDF exists afterwards.
//
// The main document is main.tex when present, otherwise the first file that
// contains \documentclass. Errors are returned only when the build could not
// be attempted; a document with TeX errors yields a Result with Success false.
func (c *Compiler) Compile(ctx context.Context, corpus []types.FileBuffer, engine string) (*Result, error) {
	if engine == "" {
		engine = DefaultEngine
	}
	if !knownEngine(engine) {
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "unsupported TeX engine", engine, nil)
	}
	mainID, err := mainDocument(corpus)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(c.TempDir, "offleaf-build-")
	if err != nil {
		return nil, types.NewAppError(types.ErrIO, "failed to create build directory", err)
	}
	res, err := c.build(ctx, dir, corpus, mainID, engine)
	if err != nil || !res.Success {
		if rerr := os.RemoveAll(dir); rerr != nil {
			logger.Warn("failed to remove build directory", logger.String("dir", dir), logger.Err(rerr))
		}
		if res != nil {
			res.Dir = ""
		}
	}
	return res, err
}

func (c *Compiler) build(ctx context.Context, dir string, corpus []types.FileBuffer, mainID, engine string) (*Result, error) {
	logger.Info("compiling document",
		logger.String("main", mainID),
		logger.String("engine", engine),
		logger.Int("files", len(corpus)))

	if err := writeCorpus(dir, corpus); err != nil {
		return nil, err
	}

	mainPath := filepath.Join(dir, filepath.FromSlash(mainID))
	var log string
	for pass := 1; pass <= passes; pass++ {
		out, ok, err := c.run(ctx, engine, dir, mainPath)
		if err != nil {
			return nil, err
		}
		log = out
		logger.Debug("compile pass finished", logger.Int("pass", pass), logger.Bool("ok", ok))
		if !ok {
			break
		}
	}

	res := &Result{
		Engine:      engine,
		Dir:         dir,
		Log:         log,
		Diagnostics: compilelog.Parse(log),
	}
	pdfPath := filepath.Join(dir, strings.TrimSuffix(filepath.Base(mainPath), filepath.Ext(mainPath))+".pdf")
	if _, err := os.Stat(pdfPath); err == nil {
		res.Success = true
		res.PDFPath = pdfPath
	}

	logger.Info("compilation finished",
		logger.Bool("success", res.Success),
		logger.Int("errors", len(res.Diagnostics.Errors)),
		logger.Int("warnings", len(res.Diagnostics.Warnings)))
	return res, nil
}

// mainDocument picks the FileID of the document to compile.
func mainDocument(corpus []types.FileBuffer) (string, error) {
	for _, f := range corpus {
		if f.FileID == MainFile {
			return f.FileID, nil
		}
	}
	for _, f := range corpus {
		if strings.EqualFold(filepath.Ext(f.FileID), ".tex") && strings.Contains(f.Content, `\documentclass`) {
			return f.FileID, nil
		}
	}
	return "", types.NewAppError(types.ErrInvalidInput, "no main document: expected main.tex or a file with \\documentclass", nil)
}

// writeCorpus writes every buffer under dir. FileIDs must be local
// slash-separated paths.
func writeCorpus(dir string, corpus []types.FileBuffer) error {
	for _, f := range corpus {
		rel := filepath.FromSlash(f.FileID)
		if !filepath.IsLocal(rel) {
			return types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid file id", f.FileID, nil)
		}
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return types.NewAppError(types.ErrIO, "failed to create build directory", err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			return types.NewAppError(types.ErrIO, fmt.Sprintf("failed to write %s", f.FileID), err)
		}
	}
	return nil
}

// run executes a single pass. ok is false when the engine exits non-zero;
// err is set only when it could not run at all or timed out.
func (c *Compiler) run(ctx context.Context, engine, dir, mainPath string) (log string, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, c.command(engine), buildArgs(dir, mainPath)...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	log = combineOutput(stdout.String(), stderr.String())

	if ctx.Err() == context.DeadlineExceeded {
		return log, false, types.NewAppError(types.ErrCompile, "compilation timed out", ctx.Err())
	}
	if ctx.Err() != nil {
		return log, false, types.NewAppError(types.ErrCompile, "compilation canceled", ctx.Err())
	}
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		return log, true, nil
	case errors.As(runErr, &exitErr):
		return log, false, nil
	default:
		logger.Error("failed to run TeX engine", runErr, logger.String("engine", engine))
		return log, false, types.NewAppErrorWithDetails(types.ErrCompile,
			fmt.Sprintf("failed to run %s, is a TeX distribution installed?", engine), c.command(engine), runErr)
	}
}

// buildArgs builds the engine command line for one pass.
func buildArgs(dir, mainPath string) []string {
	return []string{
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-file-line-error",
		"-output-directory", dir,
		mainPath,
	}
}

// combineOutput combines stdout and stderr into a single log string
func combineOutput(stdout, stderr string) string {
	var parts []string
	if stdout != "" {
		parts = append(parts, stdout)
	}
	if stderr != "" {
		parts = append(parts, stderr)
	}
	return strings.Join(parts, "\n")
}

// CheckInstallation reports, for each of Engines, whether "<engine>
// --version" runs successfully.
func (c *Compiler) CheckInstallation(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(Engines()))
	for _, engine := range Engines() {
		out[engine] = c.available(ctx, engine)
	}
	logger.Debug("TeX installation checked",
		logger.Bool(EngineXeLaTeX, out[EngineXeLaTeX]),
		logger.Bool(EnginePDFLaTeX, out[EnginePDFLaTeX]),
		logger.Bool(EngineLuaLaTeX, out[EngineLuaLaTeX]))
	return out
}

func (c *Compiler) available(ctx context.Context, engine string) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultVersionTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.command(engine), "--version")
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		logger.Debug("engine not available", logger.String("engine", engine), logger.Err(err))
		return false
	}
	return true
}
