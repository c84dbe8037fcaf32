// Package types defines core data types and error codes shared by the offleaf
// LaTeX tooling packages.
package types

// Position is a zero-based line/column location in a document.
// Columns count Unicode code points, not bytes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p sorts strictly before other in document order.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// MathSpan 数学公式区域
type MathSpan struct {
	Start     Position `json:"start"`      // 起始定界符的第一个字符
	End       Position `json:"end"`        // 结束定界符的最后一个字符
	Content   string   `json:"content"`    // 定界符之间的原始文本（保留换行）
	IsDisplay bool     `json:"is_display"` // $$...$$ 或 \[...\]
}

// Contains reports whether pos lies inside the span, delimiters included.
func (s MathSpan) Contains(pos Position) bool {
	return !pos.Before(s.Start) && !s.End.Before(pos)
}

// FileBuffer is one named text buffer of a corpus.
type FileBuffer struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

// SearchMatch 搜索匹配结果
type SearchMatch struct {
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
	Line        int    `json:"line"`         // 1-based
	Column      int    `json:"column"`       // 1-based
	LineContent string `json:"line_content"` // 所在行的完整文本
	MatchStart  int    `json:"match_start"`  // 0-based, 行内字符偏移
	MatchEnd    int    `json:"match_end"`    // 0-based, exclusive
}

// SpellIssue 拼写问题
type SpellIssue struct {
	Word        string   `json:"word"`
	Line        int      `json:"line"`         // 1-based
	StartColumn int      `json:"start_column"` // 1-based
	EndColumn   int      `json:"end_column"`   // 1-based, exclusive
	Suggestions []string `json:"suggestions"`
}

// DetectedPackage is a package referenced by \usepackage or \RequirePackage.
type DetectedPackage struct {
	Name      string `json:"name"`
	Options   string `json:"options,omitempty"`
	Installed bool   `json:"installed"`
}

// PackageInfo describes a catalogue entry.
type PackageInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LogEntry is one error or warning extracted from a TeX log.
type LogEntry struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line"` // 0 when unknown
	Message string `json:"message"`
}

// Config 应用配置
type Config struct {
	LogLevel  string          `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogFile   string          `json:"log_file" toml:"log_file" yaml:"log_file"`
	Search    SearchConfig    `json:"search" toml:"search" yaml:"search"`
	Spell     SpellConfig     `json:"spell" toml:"spell" yaml:"spell"`
	Workspace WorkspaceConfig `json:"workspace" toml:"workspace" yaml:"workspace"`
	Compile   CompileConfig   `json:"compile" toml:"compile" yaml:"compile"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	CaseSensitive bool `json:"case_sensitive" toml:"case_sensitive" yaml:"case_sensitive"`
	UseRegex      bool `json:"use_regex" toml:"use_regex" yaml:"use_regex"`
	MaxResults    int  `json:"max_results" toml:"max_results" yaml:"max_results"` // 0 表示不限制
}

// SpellConfig holds spell checker options.
type SpellConfig struct {
	UnifiedMath     bool     `json:"unified_math" toml:"unified_math" yaml:"unified_math"`             // 使用 mathscan 剔除跨行公式
	DictionaryFiles []string `json:"dictionary_files" toml:"dictionary_files" yaml:"dictionary_files"` // 额外的纠错词典
	MaxSuggestions  int      `json:"max_suggestions" toml:"max_suggestions" yaml:"max_suggestions"`
	MaxDistance     int      `json:"max_distance" toml:"max_distance" yaml:"max_distance"`
}

// WorkspaceConfig controls how project directories are loaded and written.
type WorkspaceConfig struct {
	Extensions  []string `json:"extensions" toml:"extensions" yaml:"extensions"`
	BackupDir   string   `json:"backup_dir" toml:"backup_dir" yaml:"backup_dir"`
	KeepBackups int      `json:"keep_backups" toml:"keep_backups" yaml:"keep_backups"`
}

// ErrorCode 错误代码枚举
type ErrorCode string

const (
	ErrInvalidPattern ErrorCode = "INVALID_PATTERN"
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrConfig         ErrorCode = "CONFIG_ERROR"
	ErrIO             ErrorCode = "IO_ERROR"
	ErrEncoding       ErrorCode = "ENCODING_ERROR"
	ErrCompile        ErrorCode = "COMPILE_ERROR"
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// CompileConfig controls the TeX engine used to build previews.
type CompileConfig struct {
	Engine         string `json:"engine" toml:"engine" yaml:"engine"`                            // xelatex, pdflatex 或 lualatex
	TimeoutSeconds int    `json:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"` // 每一遍编译的超时
}
