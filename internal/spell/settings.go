package spell

import (
	"offleaf/internal/logger"
	"offleaf/internal/types"
)

// NewCheckerFromConfig builds a Checker from the spell section of the
// application config. Extra dictionary files are merged over the built-in
// dictionary in order; a file that cannot be loaded is an error.
func NewCheckerFromConfig(cfg types.SpellConfig) (*Checker, error) {
	dict := Default()
	for _, path := range cfg.DictionaryFiles {
		extra, err := LoadDictionaryFile(path)
		if err != nil {
			return nil, types.NewAppErrorWithDetails(types.ErrConfig, "failed to load dictionary", path, err)
		}
		dict = dict.Merge(extra)
	}

	logger.Debug("spell checker configured",
		logger.Int("dictionaryEntries", dict.Len()),
		logger.Bool("unifiedMath", cfg.UnifiedMath))
	return NewChecker(dict, nil, Options{
		UnifiedMath:    cfg.UnifiedMath,
		MaxSuggestions: cfg.MaxSuggestions,
		MaxDistance:    cfg.MaxDistance,
	}), nil
}
