package packages

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offleaf/internal/types"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []types.DetectedPackage
	}{
		{
			name:    "single package",
			content: `\usepackage{amsmath}`,
			want:    []types.DetectedPackage{{Name: "amsmath"}},
		},
		{
			name:    "options shared by list",
			content: `\usepackage[utf8, T1]{inputenc, fontenc}`,
			want: []types.DetectedPackage{
				{Name: "inputenc", Options: "utf8, T1"},
				{Name: "fontenc", Options: "utf8, T1"},
			},
		},
		{
			name:    "empty names skipped",
			content: `\usepackage{a,,b, }`,
			want:    []types.DetectedPackage{{Name: "a"}, {Name: "b"}},
		},
		{
			name: "usepackage before RequirePackage",
			content: "\\RequirePackage{etoolbox}\n" +
				"\\usepackage{graphicx}\n" +
				"\\usepackage [margin=1in] {geometry}",
			want: []types.DetectedPackage{
				{Name: "graphicx"},
				{Name: "geometry", Options: "margin=1in"},
				{Name: "etoolbox"},
			},
		},
		{
			name:    "commented out",
			content: "% \\usepackage{tikz}\n\\usepackage{xcolor} % \\usepackage{pgf}",
			want:    []types.DetectedPackage{{Name: "xcolor"}},
		},
		{
			name:    "escaped percent keeps the line",
			content: `50\% \usepackage{booktabs}`,
			want:    []types.DetectedPackage{{Name: "booktabs"}},
		},
		{
			name:    "list across lines",
			content: "\\usepackage{amsmath,\n  amssymb}",
			want:    []types.DetectedPackage{{Name: "amsmath"}, {Name: "amssymb"}},
		},
		{
			name:    "none",
			content: `\documentclass{article}`,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Detect(tt.content)); diff != "" {
				t.Errorf("Detect mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCatalogues(t *testing.T) {
	for name, list := range map[string][]types.PackageInfo{
		"essential":   Essential(),
		"recommended": Recommended(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, list)
			seen := map[string]bool{}
			for _, info := range list {
				assert.NotEmpty(t, info.Name)
				assert.NotEmpty(t, info.Description)
				assert.False(t, seen[info.Name], "duplicate %s", info.Name)
				seen[info.Name] = true
			}
		})
	}

	// callers get a copy
	list := Essential()
	list[0].Name = "changed"
	assert.NotEqual(t, "changed", Essential()[0].Name)
}

func TestResolve(t *testing.T) {
	calls := map[string]int{}
	locator := LocatorFunc(func(ctx context.Context, name string) bool {
		calls[name]++
		return name == "amsmath"
	})

	detected := Detect(`\usepackage{amsmath,foo}\RequirePackage{amsmath}`)
	got := Resolve(context.Background(), detected, locator)

	assert.Equal(t, []types.DetectedPackage{
		{Name: "amsmath", Installed: true},
		{Name: "foo"},
		{Name: "amsmath", Installed: true},
	}, got.Packages)
	assert.Equal(t, []string{"amsmath"}, got.Installed)
	assert.Equal(t, []string{"foo"}, got.Missing)
	assert.Equal(t, 1, calls["amsmath"])
}

func TestResolve_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	locator := LocatorFunc(func(ctx context.Context, name string) bool {
		t.Fatal("locator must not be called after cancellation")
		return true
	})
	got := Resolve(ctx, []types.DetectedPackage{{Name: "amsmath"}}, locator)
	assert.Equal(t, []string{"amsmath"}, got.Missing)
}

func TestResolveNames(t *testing.T) {
	locator := LocatorFunc(func(ctx context.Context, name string) bool { return true })
	got := ResolveNames(context.Background(), Essential(), locator)
	assert.Len(t, got.Installed, len(Essential()))
	assert.Empty(t, got.Missing)
}

func TestKpsewhichLocator(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as a stand-in for kpsewhich")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-kpsewhich")
	// only article.cls and amsmath.sty exist
	content := "#!/bin/sh\ncase \"$1\" in\n  amsmath.sty|article.cls) echo /texmf/$1 ;;\n  *) exit 1 ;;\nesac\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))

	k := KpsewhichLocator{Command: script}
	ctx := context.Background()
	assert.True(t, k.Installed(ctx, "amsmath"))
	assert.True(t, k.Installed(ctx, "article"))
	assert.False(t, k.Installed(ctx, "missingpkg"))
}

func TestKpsewhichLocator_MissingBinary(t *testing.T) {
	k := KpsewhichLocator{Command: filepath.Join(t.TempDir(), "does-not-exist")}
	assert.False(t, k.Installed(context.Background(), "amsmath"))
}
