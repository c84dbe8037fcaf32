// Package config provides configuration management for offleaf.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"offleaf/internal/logger"
	"offleaf/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "offleaf-config.json"
	// EnvLogLevel overrides the configured log level
	EnvLogLevel = "OFFLEAF_LOG_LEVEL"
	// EnvDictionary names an extra dictionary file appended to the configured ones
	EnvDictionary = "OFFLEAF_DICTIONARY"
	// DefaultLogLevel is the log level used when none is configured
	DefaultLogLevel = "info"
	// DefaultMaxSuggestions caps the suggestions returned per word
	DefaultMaxSuggestions = 5
	// DefaultMaxDistance is the largest edit distance for fallback suggestions
	DefaultMaxDistance = 2
	// DefaultBackupDir is the directory, relative to the project root, where
	// replace writes backups
	DefaultBackupDir = ".offleaf/backups"
	// DefaultKeepBackups is the number of backups kept per file
	DefaultKeepBackups = 5
	// DefaultEngine is the TeX engine used for compiling
	DefaultEngine = "xelatex"
	// DefaultCompileTimeout is the per-pass compile timeout in seconds
	DefaultCompileTimeout = 300
)

// DefaultExtensions are the file extensions loaded into a search corpus.
var DefaultExtensions = []string{".tex", ".bib", ".sty", ".cls"}

// format is a config file encoding selected by extension.
type format int

const (
	formatJSON format = iota
	formatTOML
	formatYAML
)

func formatFor(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

func (f format) unmarshal(data []byte, v interface{}) error {
	switch f {
	case formatTOML:
		return toml.Unmarshal(data, v)
	case formatYAML:
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

func (f format) marshal(v interface{}) ([]byte, error) {
	switch f {
	case formatTOML:
		return toml.Marshal(v)
	case formatYAML:
		return yaml.Marshal(v)
	default:
		return json.MarshalIndent(v, "", "  ")
	}
}

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "offleaf", DefaultConfigFileName)
	}

	logger.Info("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
	}, nil
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *types.Config {
	return &types.Config{
		LogLevel: DefaultLogLevel,
		Search:   types.SearchConfig{},
		Spell: types.SpellConfig{
			MaxSuggestions: DefaultMaxSuggestions,
			MaxDistance:    DefaultMaxDistance,
		},
		Workspace: types.WorkspaceConfig{
			Extensions:  append([]string(nil), DefaultExtensions...),
			BackupDir:   DefaultBackupDir,
			KeepBackups: DefaultKeepBackups,
		},
		Compile: types.CompileConfig{
			Engine:         DefaultEngine,
			TimeoutSeconds: DefaultCompileTimeout,
		},
	}
}

// Load loads configuration from the config file.
// A missing file yields defaults, an unparsable file yields defaults and a
// warning. Environment overrides are applied last.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
		m.config = DefaultConfig()
	case err != nil:
		logger.Error("failed to read config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to read config file", err)
	default:
		config := &types.Config{}
		if err := formatFor(m.configPath).unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults",
				logger.String("path", m.configPath), logger.Err(err))
			m.config = DefaultConfig()
		} else {
			logger.Info("configuration loaded successfully",
				logger.String("path", m.configPath),
				logger.String("logLevel", config.LogLevel),
				logger.Int("dictionaries", len(config.Spell.DictionaryFiles)))
			m.config = config
		}
	}

	applyDefaults(m.config)
	applyEnv(m.config)
	return nil
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(c *types.Config) {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Spell.MaxSuggestions <= 0 {
		c.Spell.MaxSuggestions = DefaultMaxSuggestions
	}
	if c.Spell.MaxDistance <= 0 {
		c.Spell.MaxDistance = DefaultMaxDistance
	}
	if c.Search.MaxResults < 0 {
		c.Search.MaxResults = 0
	}
	if len(c.Workspace.Extensions) == 0 {
		c.Workspace.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if c.Workspace.BackupDir == "" {
		c.Workspace.BackupDir = DefaultBackupDir
	}
	if c.Workspace.KeepBackups <= 0 {
		c.Workspace.KeepBackups = DefaultKeepBackups
	}
	if c.Compile.Engine == "" {
		c.Compile.Engine = DefaultEngine
	}
	if c.Compile.TimeoutSeconds <= 0 {
		c.Compile.TimeoutSeconds = DefaultCompileTimeout
	}
}

func applyEnv(c *types.Config) {
	if level := os.Getenv(EnvLogLevel); level != "" {
		if _, err := logger.ParseLevel(level); err != nil {
			logger.Warn("ignoring invalid log level from environment",
				logger.String("env", EnvLogLevel), logger.String("value", level))
		} else {
			c.LogLevel = level
		}
	}
	if dict := os.Getenv(EnvDictionary); dict != "" {
		for _, existing := range c.Spell.DictionaryFiles {
			if existing == dict {
				return
			}
		}
		c.Spell.DictionaryFiles = append(c.Spell.DictionaryFiles, dict)
	}
}

// Save saves the current configuration to the config file, in the format
// implied by its extension.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := formatFor(m.configPath).marshal(m.GetConfig())
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return DefaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration. Zero values are replaced by
// defaults.
func (m *ConfigManager) SetConfig(config *types.Config) {
	if config == nil {
		config = DefaultConfig()
	}
	applyDefaults(config)
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetLogLevel returns the configured log level, falling back to info for
// unknown names.
func (m *ConfigManager) GetLogLevel() logger.Level {
	level, err := logger.ParseLevel(m.GetConfig().LogLevel)
	if err != nil {
		return logger.LevelInfo
	}
	return level
}

// GetDictionaryFiles returns the extra dictionary files to merge.
func (m *ConfigManager) GetDictionaryFiles() []string {
	return m.GetConfig().Spell.DictionaryFiles
}

// GetExtensions returns the file extensions loaded into a corpus.
func (m *ConfigManager) GetExtensions() []string {
	return m.GetConfig().Workspace.Extensions
}
