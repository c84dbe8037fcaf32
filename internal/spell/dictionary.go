package spell

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"offleaf/internal/logger"
)

//go:embed data/misspellings.yaml
var defaultDictionaryYAML []byte

// dictionaryFile is the sectioned layout of the embedded dictionary.
type dictionaryFile struct {
	General  map[string]string `yaml:"general"`
	Academic map[string]string `yaml:"academic"`
}

// Dictionary maps known misspellings to their correction.
// A Dictionary is immutable once built and safe for concurrent use.
type Dictionary struct {
	entries     map[string]string
	corrections []string
}

// NewDictionary builds a dictionary from misspelling → correction pairs.
// Keys are matched case-insensitively; empty keys or values are dropped.
func NewDictionary(entries map[string]string) *Dictionary {
	d := &Dictionary{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		d.entries[k] = v
	}
	d.index()
	return d
}

func (d *Dictionary) index() {
	seen := make(map[string]struct{}, len(d.entries))
	d.corrections = d.corrections[:0]
	for _, v := range d.entries {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		d.corrections = append(d.corrections, v)
	}
	sort.Strings(d.corrections)
}

// Lookup returns the correction for word, ignoring case.
func (d *Dictionary) Lookup(word string) (string, bool) {
	v, ok := d.entries[strings.ToLower(word)]
	return v, ok
}

// Corrections returns the distinct correct spellings in sorted order.
func (d *Dictionary) Corrections() []string {
	out := make([]string, len(d.corrections))
	copy(out, d.corrections)
	return out
}

// Len returns the number of misspellings known.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Merge returns a new dictionary holding d's entries overlaid with extra.
func (d *Dictionary) Merge(extra map[string]string) *Dictionary {
	combined := make(map[string]string, len(d.entries)+len(extra))
	for k, v := range d.entries {
		combined[k] = v
	}
	for k, v := range extra {
		combined[strings.ToLower(k)] = v
	}
	return NewDictionary(combined)
}

var (
	defaultDict     *Dictionary
	defaultDictOnce sync.Once
)

// Default returns the built-in dictionary of general English and academic
// misspellings.
func Default() *Dictionary {
	defaultDictOnce.Do(func() {
		var f dictionaryFile
		if err := yaml.Unmarshal(defaultDictionaryYAML, &f); err != nil {
			panic(fmt.Sprintf("spell: embedded dictionary is invalid: %v", err))
		}
		entries := make(map[string]string, len(f.General)+len(f.Academic))
		for k, v := range f.General {
			entries[k] = v
		}
		for k, v := range f.Academic {
			entries[k] = v
		}
		defaultDict = NewDictionary(entries)
	})
	return defaultDict
}

// LoadDictionaryFile reads extra misspelling → correction pairs. The format
// follows the extension: .yaml/.yml, .toml or .json, each holding a flat
// table of strings.
func LoadDictionaryFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary file: %w", err)
	}

	entries := make(map[string]string)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	case ".toml":
		err = toml.Unmarshal(data, &entries)
	case ".json":
		err = json.Unmarshal(data, &entries)
	default:
		return nil, fmt.Errorf("unsupported dictionary format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary file %s: %w", path, err)
	}

	logger.Debug("dictionary file loaded",
		logger.String("path", path),
		logger.Int("entries", len(entries)))
	return entries, nil
}
