// Package packages finds the LaTeX packages a document loads and checks
// which of them are available in the local TeX installation.
package packages

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"offleaf/internal/logger"
	"offleaf/internal/types"
)

var (
	usePackageRe     = regexp.MustCompile(`\\usepackage\s*(?:\[([^\]]*)\])?\s*\{([^}]+)\}`)
	requirePackageRe = regexp.MustCompile(`\\RequirePackage\s*(?:\[([^\]]*)\])?\s*\{([^}]+)\}`)
)

// Detect lists every package loaded with \usepackage or \RequirePackage, one
// entry per name of a comma-separated list. All \usepackage entries come first
// in document order, then the \RequirePackage ones. Commented-out text is
// ignored. Installed is left false; see Resolve.
func Detect(content string) []types.DetectedPackage {
	content = stripComments(content)

	var out []types.DetectedPackage
	for _, re := range []*regexp.Regexp{usePackageRe, requirePackageRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			options := strings.TrimSpace(m[1])
			for _, name := range strings.Split(m[2], ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				out = append(out, types.DetectedPackage{Name: name, Options: options})
			}
		}
	}
	return out
}

// stripComments removes everything from the first unescaped % on each line.
func stripComments(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if idx := commentStart(line); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

func commentStart(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != '%' {
			continue
		}
		n := 0
		for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
			n++
		}
		if n%2 == 0 {
			return i
		}
	}
	return -1
}

var essential = []types.PackageInfo{
	{Name: "amsmath", Description: "AMS mathematical facilities"},
	{Name: "amssymb", Description: "AMS symbol fonts"},
	{Name: "amsfonts", Description: "AMS font definitions"},
	{Name: "mathtools", Description: "Extensions to amsmath"},
	{Name: "graphicx", Description: "Enhanced support for graphics"},
	{Name: "xcolor", Description: "Driver-independent color extensions"},
	{Name: "pgf", Description: "Portable graphics format, includes TikZ"},
	{Name: "booktabs", Description: "Publication quality tables"},
	{Name: "array", Description: "Extended array and tabular environments"},
	{Name: "tabularx", Description: "Tables with adjustable-width columns"},
	{Name: "longtable", Description: "Tables spanning several pages"},
	{Name: "fontspec", Description: "Font selection for XeLaTeX and LuaLaTeX"},
	{Name: "geometry", Description: "Flexible page dimensions"},
	{Name: "fancyhdr", Description: "Custom headers and footers"},
	{Name: "titlesec", Description: "Section title formatting"},
	{Name: "hyperref", Description: "Extensive support for hypertext"},
	{Name: "biblatex", Description: "Sophisticated bibliographies"},
	{Name: "listings", Description: "Typeset source code listings"},
	{Name: "enumitem", Description: "Control over list environments"},
	{Name: "caption", Description: "Customized figure and table captions"},
	{Name: "float", Description: "Improved interface for floating objects"},
	{Name: "xecjk", Description: "CJK support for XeLaTeX"},
}

var recommended = []types.PackageInfo{
	{Name: "amsmath", Description: "AMS mathematical facilities"},
	{Name: "graphicx", Description: "Enhanced support for graphics"},
	{Name: "hyperref", Description: "Extensive support for hypertext"},
	{Name: "tikz", Description: "Create graphics programmatically"},
	{Name: "biblatex", Description: "Sophisticated bibliographies"},
	{Name: "listings", Description: "Typeset source code listings"},
	{Name: "booktabs", Description: "Publication quality tables"},
	{Name: "cleveref", Description: "Intelligent cross-referencing"},
	{Name: "siunitx", Description: "Consistent typesetting of units"},
	{Name: "xecjk", Description: "CJK support for XeLaTeX"},
}

// Essential returns the packages a working installation is expected to have.
func Essential() []types.PackageInfo {
	return append([]types.PackageInfo(nil), essential...)
}

// Recommended returns commonly useful packages for authoring papers.
func Recommended() []types.PackageInfo {
	return append([]types.PackageInfo(nil), recommended...)
}

// Locator reports whether a package is available locally.
type Locator interface {
	Installed(ctx context.Context, name string) bool
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, name string) bool

// Installed implements Locator
func (f LocatorFunc) Installed(ctx context.Context, name string) bool {
	return f(ctx, name)
}

// DefaultLookupTimeout bounds a single kpsewhich call
const DefaultLookupTimeout = 10 * time.Second

// KpsewhichLocator looks packages up with kpsewhich, trying <name>.sty and
// then <name>.cls.
type KpsewhichLocator struct {
	// Command defaults to "kpsewhich".
	Command string
	Timeout time.Duration
}

// Installed implements Locator
func (k KpsewhichLocator) Installed(ctx context.Context, name string) bool {
	for _, file := range []string{name + ".sty", name + ".cls"} {
		if k.find(ctx, file) {
			return true
		}
	}
	return false
}

func (k KpsewhichLocator) find(ctx context.Context, file string) bool {
	command := k.Command
	if command == "" {
		command = "kpsewhich"
	}
	timeout := k.Timeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, file)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		logger.Debug("kpsewhich lookup failed", logger.String("file", file), logger.Err(err))
		return false
	}
	return strings.TrimSpace(stdout.String()) != ""
}

// Resolution is the outcome of checking detected packages against a Locator.
type Resolution struct {
	Packages  []types.DetectedPackage `json:"packages"`
	Installed []string                `json:"installed"`
	Missing   []string                `json:"missing"`
}

// Resolve marks each detected package as installed or missing. Each distinct
// name is looked up once; Installed and Missing list distinct names in first
// appearance order.
func Resolve(ctx context.Context, detected []types.DetectedPackage, locator Locator) Resolution {
	res := Resolution{Packages: make([]types.DetectedPackage, 0, len(detected))}
	known := make(map[string]bool)

	for _, pkg := range detected {
		installed, seen := known[pkg.Name]
		if !seen {
			installed = ctx.Err() == nil && locator.Installed(ctx, pkg.Name)
			known[pkg.Name] = installed
			if installed {
				res.Installed = append(res.Installed, pkg.Name)
			} else {
				res.Missing = append(res.Missing, pkg.Name)
			}
		}
		pkg.Installed = installed
		res.Packages = append(res.Packages, pkg)
	}

	logger.Info("packages resolved",
		logger.Int("packages", len(known)),
		logger.Int("missing", len(res.Missing)))
	return res
}

// ResolveNames checks a catalogue such as Essential against locator.
func ResolveNames(ctx context.Context, infos []types.PackageInfo, locator Locator) Resolution {
	detected := make([]types.DetectedPackage, len(infos))
	for i, info := range infos {
		detected[i] = types.DetectedPackage{Name: info.Name}
	}
	return Resolve(ctx, detected, locator)
}
