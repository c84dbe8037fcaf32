package main

import (
	"context"
	"sync"
	"time"

	"offleaf/internal/compilelog"
	"offleaf/internal/compiler"
	"offleaf/internal/config"
	"offleaf/internal/logger"
	"offleaf/internal/mathscan"
	"offleaf/internal/packages"
	"offleaf/internal/search"
	"offleaf/internal/spell"
	"offleaf/internal/types"
	"offleaf/internal/workspace"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Event names for frontend communication
const (
	EventSearchComplete     = "search-complete"
	EventSpellcheckComplete = "spellcheck-complete"
	EventFilesChanged       = "files-changed"
	EventCompileComplete    = "compile-complete"
)

// SearchResult is the tagged outcome of SearchChecked. Exactly one of
// Matches or Error is meaningful.
type SearchResult struct {
	Matches []types.SearchMatch `json:"matches"`
	Error   *types.AppError     `json:"error,omitempty"`
}

// Project is a workspace opened from the GUI.
type Project struct {
	Root  string             `json:"root"`
	Files []types.FileBuffer `json:"files"`
}

// App is the main Wails application controller.
// It owns the configuration, the spell checker and the session ignore list,
// and exposes the scanner, search and spell operations to the frontend.
type App struct {
	ctx    context.Context
	config *config.ConfigManager

	mu      sync.RWMutex
	checker *spell.Checker
	ignore  *spell.IgnoreList

	// currently opened project, if any
	project *workspace.Workspace
	watcher *workspace.Watcher

	locator  packages.Locator
	compiler *compiler.Compiler
	// last successful build; its directory holds the PDF being previewed
	build *compiler.Result

	// isWailsRuntime indicates if the app is running in a Wails environment
	// This is used to safely skip EventsEmit calls during tests
	isWailsRuntime bool
}

// safeEmit safely emits an event to the frontend.
// It only emits events when running in a Wails environment.
func (a *App) safeEmit(eventName string, data ...interface{}) {
	if !a.isWailsRuntime {
		logger.Debug("event emit skipped (not in Wails runtime)",
			logger.String("event", eventName))
		return
	}
	runtime.EventsEmit(a.ctx, eventName, data...)
}

// SetWailsRuntime sets the Wails runtime flag.
// This should be called from main.go when the app is started in Wails mode.
func (a *App) SetWailsRuntime(isWails bool) {
	a.isWailsRuntime = isWails
}

// NewApp creates a new App. Configuration is loaded in startup.
func NewApp() *App {
	return &App{
		ignore:   spell.NewIgnoreList(),
		locator:  packages.KpsewhichLocator{},
		compiler: &compiler.Compiler{},
	}
}

// NewAppWithConfig creates a new App with a custom config path.
// This is useful for testing or when a specific configuration location is needed.
func NewAppWithConfig(configPath string) (*App, error) {
	app := NewApp()

	configMgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, err
	}
	app.config = configMgr

	return app, nil
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	logger.Info("application starting up")

	if a.config == nil {
		configMgr, err := config.NewConfigManager("")
		if err != nil {
			logger.Error("failed to create config manager", err)
			return
		}
		a.config = configMgr
	}

	if err := a.config.Load(); err != nil {
		// Continue with defaults if config load fails
		logger.Warn("failed to load config, using defaults", logger.Err(err))
	}
	logger.GetLogger().SetLevel(a.config.GetLogLevel())

	if err := a.rebuildChecker(); err != nil {
		logger.Warn("failed to build spell checker from config, using built-in dictionary", logger.Err(err))
		a.mu.Lock()
		a.checker = spell.NewChecker(spell.Default(), nil, spell.Options{})
		a.mu.Unlock()
	}

	logger.Info("application startup complete")
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	logger.Info("application shutting down")
	a.closeProject()
	a.mu.Lock()
	build := a.build
	a.build = nil
	a.mu.Unlock()
	if err := build.Cleanup(); err != nil {
		logger.Warn("failed to remove build directory", logger.Err(err))
	}
	logger.Info("application shutdown complete")
}

// runCtx returns the runtime context, or a background context before startup.
func (a *App) runCtx() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// rebuildChecker creates the spell checker from the current config.
func (a *App) rebuildChecker() error {
	checker, err := spell.NewCheckerFromConfig(a.GetSettings().Spell)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.checker = checker
	a.mu.Unlock()
	return nil
}

func (a *App) spellChecker() *spell.Checker {
	a.mu.RLock()
	c := a.checker
	a.mu.RUnlock()
	if c == nil {
		return spell.NewChecker(spell.Default(), nil, spell.Options{})
	}
	return c
}

// ScanMath returns the math spans of a document.
func (a *App) ScanMath(document string) []types.MathSpan {
	spans := mathscan.Scan(document)
	logger.Debug("math scan completed", logger.Int("spans", len(spans)))
	return spans
}

// MathAt returns the span containing the zero-based line/column, or nil.
func (a *App) MathAt(document string, line, column int) *types.MathSpan {
	return mathscan.FindSpanAtPosition(mathscan.Scan(document), line, column)
}

// Search finds pattern across corpus. An invalid pattern yields no matches.
func (a *App) Search(corpus []types.FileBuffer, pattern string, useRegex, caseSensitive bool) []types.SearchMatch {
	matches := search.Search(corpus, pattern, useRegex, caseSensitive)
	if matches == nil {
		matches = []types.SearchMatch{}
	}
	a.safeEmit(EventSearchComplete, map[string]interface{}{
		"pattern": pattern,
		"count":   len(matches),
	})
	return matches
}

// SearchChecked is Search that reports invalid patterns instead of hiding
// them. The configured result limit applies.
func (a *App) SearchChecked(corpus []types.FileBuffer, pattern string, useRegex, caseSensitive bool) SearchResult {
	matches, err := search.Find(corpus, search.Query{
		Pattern:       pattern,
		UseRegex:      useRegex,
		CaseSensitive: caseSensitive,
		MaxResults:    a.GetSettings().Search.MaxResults,
	})
	if err != nil {
		logger.Debug("search rejected", logger.String("pattern", pattern), logger.Err(err))
		return SearchResult{
			Matches: []types.SearchMatch{},
			Error:   types.NewAppErrorWithDetails(types.ErrInvalidPattern, "invalid search pattern", err.Error(), err),
		}
	}
	if matches == nil {
		matches = []types.SearchMatch{}
	}
	a.safeEmit(EventSearchComplete, map[string]interface{}{
		"pattern": pattern,
		"count":   len(matches),
	})
	return SearchResult{Matches: matches}
}

// ReplaceOne replaces a single match in content.
func (a *App) ReplaceOne(content string, match types.SearchMatch, replacement string) string {
	return search.ReplaceOne(content, match, replacement)
}

// ReplaceAll replaces every match and returns the new content per file ID.
func (a *App) ReplaceAll(corpus []types.FileBuffer, matches []types.SearchMatch, replacement string) map[string]string {
	updated := search.ReplaceAll(corpus, matches, replacement)
	logger.Info("replace all completed",
		logger.Int("matches", len(matches)),
		logger.Int("files", len(updated)))
	return updated
}

// CheckSpelling checks document and drops words on the ignore list.
func (a *App) CheckSpelling(document string) []types.SpellIssue {
	issues := a.ignore.Filter(a.spellChecker().Check(document))
	if issues == nil {
		issues = []types.SpellIssue{}
	}
	a.safeEmit(EventSpellcheckComplete, map[string]interface{}{
		"count": len(issues),
	})
	return issues
}

// Suggest returns corrections for a single word.
func (a *App) Suggest(word string) []string {
	suggestions := a.spellChecker().Suggest(word)
	if suggestions == nil {
		return []string{}
	}
	return suggestions
}

// AddToIgnoreList adds word to the session ignore list.
func (a *App) AddToIgnoreList(word string) {
	a.ignore.Add(word)
	logger.Debug("word ignored", logger.String("word", word))
}

// IsIgnored reports whether word is on the ignore list.
func (a *App) IsIgnored(word string) bool {
	return a.ignore.Contains(word)
}

// GetIgnoreList returns the ignored words, sorted.
func (a *App) GetIgnoreList() []string {
	return a.ignore.Words()
}

// ClearIgnoreList empties the ignore list.
func (a *App) ClearIgnoreList() {
	a.ignore.Clear()
}

// DetectPackages lists packages used by content and whether they are
// installed in the local TeX distribution.
func (a *App) DetectPackages(content string) packages.Resolution {
	res := packages.Resolve(a.runCtx(), packages.Detect(content), a.locator)
	logger.Info("package detection completed",
		logger.Int("packages", len(res.Packages)),
		logger.Int("missing", len(res.Missing)))
	return res
}

// CheckEssentialPackages resolves the essential package catalogue.
func (a *App) CheckEssentialPackages() packages.Resolution {
	return packages.ResolveNames(a.runCtx(), packages.Essential(), a.locator)
}

// ParseCompileLog extracts errors and warnings from a TeX log.
func (a *App) ParseCompileLog(log string) compilelog.Result {
	return compilelog.Parse(log)
}

// Compile builds corpus with engine, or the configured engine when engine is
// empty. A successful build replaces the previous one, whose directory is
// removed.
func (a *App) Compile(corpus []types.FileBuffer, engine string) (*compiler.Result, error) {
	settings := a.GetSettings().Compile
	if engine == "" {
		engine = settings.Engine
	}
	c := *a.compiler
	c.Timeout = time.Duration(settings.TimeoutSeconds) * time.Second

	res, err := c.Compile(a.runCtx(), corpus, engine)
	if err != nil {
		logger.Error("compilation failed", err, logger.String("engine", engine))
		return nil, err
	}

	if res.Success {
		a.mu.Lock()
		prev := a.build
		a.build = res
		a.mu.Unlock()
		if err := prev.Cleanup(); err != nil {
			logger.Warn("failed to remove previous build", logger.Err(err))
		}
	}

	a.safeEmit(EventCompileComplete, map[string]interface{}{
		"success":  res.Success,
		"errors":   len(res.Diagnostics.Errors),
		"warnings": len(res.Diagnostics.Warnings),
	})
	return res, nil
}

// CheckLaTeXInstallation reports which TeX engines are available.
func (a *App) CheckLaTeXInstallation() map[string]bool {
	return a.compiler.CheckInstallation(a.runCtx())
}

// GetSettings returns the current application settings for the frontend.
func (a *App) GetSettings() *types.Config {
	if a.config == nil {
		return config.DefaultConfig()
	}
	cfg := *a.config.GetConfig()
	return &cfg
}

// SaveSettings stores cfg, persists it and rebuilds the spell checker.
// The previous checker stays in use when the new dictionaries cannot be loaded.
func (a *App) SaveSettings(cfg types.Config) error {
	if a.config == nil {
		return types.NewAppError(types.ErrConfig, "configuration not initialized", nil)
	}

	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid log level", cfg.LogLevel, err)
	}
	checker, err := spell.NewCheckerFromConfig(cfg.Spell)
	if err != nil {
		return err
	}

	a.config.SetConfig(&cfg)
	if err := a.config.Save(); err != nil {
		return err
	}

	a.mu.Lock()
	a.checker = checker
	a.mu.Unlock()
	logger.GetLogger().SetLevel(a.config.GetLogLevel())
	logger.Info("settings saved")
	return nil
}

// OpenProject loads every source file under dir and starts watching it for
// changes made outside the editor.
func (a *App) OpenProject(dir string) (*Project, error) {
	ws, err := workspace.Open(dir, a.GetSettings().Workspace)
	if err != nil {
		return nil, err
	}
	files, err := ws.Load()
	if err != nil {
		return nil, err
	}

	a.closeProject()
	a.mu.Lock()
	a.project = ws
	a.mu.Unlock()

	if w, err := ws.Watch(workspace.DefaultDebounce); err != nil {
		logger.Warn("failed to watch project", logger.String("root", ws.Root()), logger.Err(err))
	} else {
		a.mu.Lock()
		a.watcher = w
		a.mu.Unlock()
		go a.forwardChanges(w)
	}

	logger.Info("project opened", logger.String("root", ws.Root()), logger.Int("files", len(files)))
	return &Project{Root: ws.Root(), Files: files}, nil
}

func (a *App) forwardChanges(w *workspace.Watcher) {
	for {
		select {
		case path, ok := <-w.Changes():
			if !ok {
				return
			}
			a.safeEmit(EventFilesChanged, path)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logger.Warn("project watcher error", logger.Err(err))
		}
	}
}

func (a *App) closeProject() {
	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.project = nil
	a.mu.Unlock()

	if w != nil {
		if err := w.Close(); err != nil {
			logger.Warn("failed to stop project watcher", logger.Err(err))
		}
	}
}

// PreviewChanges returns a diff for every file whose content would change.
func (a *App) PreviewChanges(corpus []types.FileBuffer, updated map[string]string) []workspace.FileDiff {
	return workspace.Preview(corpus, updated)
}

// SaveChanges writes updated contents of the open project to disk, backing
// up each file first. It returns the file IDs written.
func (a *App) SaveChanges(corpus []types.FileBuffer, updated map[string]string) ([]string, error) {
	a.mu.RLock()
	ws := a.project
	a.mu.RUnlock()
	if ws == nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "no project open", nil)
	}
	return ws.Apply(corpus, updated)
}

// OpenDirectoryDialog opens a directory selection dialog.
// Returns the selected directory path or empty string if cancelled.
func (a *App) OpenDirectoryDialog() string {
	logger.Debug("opening directory dialog")
	selection, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "选择 LaTeX 项目目录",
	})
	if err != nil {
		logger.Error("directory dialog error", err)
		return ""
	}
	logger.Debug("directory selected", logger.String("path", selection))
	return selection
}
