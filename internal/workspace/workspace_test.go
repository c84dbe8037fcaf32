package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"offleaf/internal/types"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func testConfig() types.WorkspaceConfig {
	return types.WorkspaceConfig{
		Extensions:  []string{".tex", ".bib"},
		BackupDir:   ".offleaf/backups",
		KeepBackups: 2,
	}
}

func TestEncodingRoundTrip(t *testing.T) {
	text := "中文 $x$ text\n"
	for _, enc := range []Encoding{EncodingUTF8, EncodingUTF8BOM, EncodingUTF16LE, EncodingUTF16BE, EncodingGBK} {
		t.Run(string(enc), func(t *testing.T) {
			data, err := Encode(text, enc)
			require.NoError(t, err)
			assert.Equal(t, enc, DetectEncoding(data))

			got, detected, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, enc, detected)
			assert.Equal(t, text, got)
		})
	}
}

func TestDecodeGBK(t *testing.T) {
	data, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("中文摘要"))
	require.NoError(t, err)

	got, enc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EncodingGBK, enc)
	assert.Equal(t, "中文摘要", got)
}

func TestEncodeUnsupported(t *testing.T) {
	_, err := Encode("x", Encoding("EBCDIC"))
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrEncoding, appErr.Code)
}

func TestWorkspace_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.tex"), []byte("\\input{sections/intro}\n"))
	writeFile(t, filepath.Join(root, "sections", "intro.tex"), []byte("Intro text\n"))
	writeFile(t, filepath.Join(root, "refs.bib"), []byte("@article{a}\n"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("ignored"))
	writeFile(t, filepath.Join(root, ".git", "x.tex"), []byte("hidden"))

	ws, err := Open(root, testConfig())
	require.NoError(t, err)

	corpus, err := ws.Load()
	require.NoError(t, err)

	ids := make([]string, len(corpus))
	for i, f := range corpus {
		ids[i] = f.FileID
	}
	assert.Equal(t, []string{"main.tex", "refs.bib", "sections/intro.tex"}, ids)
	assert.Equal(t, "intro.tex", corpus[2].FileName)
	assert.Equal(t, "Intro text\n", corpus[2].Content)
	path, err := ws.Path("sections/intro.tex")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "sections", "intro.tex"), path)
}

func TestWorkspace_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.tex")
	writeFile(t, path, []byte("teh text"))

	ws, err := Open(path, testConfig())
	require.NoError(t, err)

	corpus, err := ws.Load()
	require.NoError(t, err)
	require.Len(t, corpus, 1)
	assert.Equal(t, "paper.tex", corpus[0].FileID)
	path, err = ws.Path("paper.tex")
	require.NoError(t, err)
	assert.Equal(t, ws.Root(), path)
	_, err = ws.Path("other.tex")
	assert.Error(t, err)

	id, ok := ws.FileID(ws.Root())
	assert.True(t, ok)
	assert.Equal(t, "paper.tex", id)
	_, ok = ws.FileID(filepath.Join(filepath.Dir(ws.Root()), "other.tex"))
	assert.False(t, ok)
}

func TestWorkspace_FileID(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(dir, testConfig())
	require.NoError(t, err)

	id, ok := ws.FileID(filepath.Join(ws.Root(), "sections", "intro.tex"))
	assert.True(t, ok)
	assert.Equal(t, "sections/intro.tex", id)

	_, ok = ws.FileID(filepath.Join(filepath.Dir(ws.Root()), "elsewhere.tex"))
	assert.False(t, ok)
	_, ok = ws.FileID(ws.Root())
	assert.False(t, ok)

	id, ok = ws.FileID(filepath.Join(ws.Root(), "..notes.tex"))
	assert.True(t, ok)
	assert.Equal(t, "..notes.tex", id)
}

func TestWorkspace_PathRejectsForeignIDs(t *testing.T) {
	ws, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)

	for _, id := range []string{"", ".", "..", "../x.tex", "a/../b.tex", "./a.tex", "a//b.tex", "/etc/passwd"} {
		_, err := ws.Path(id)
		require.Error(t, err, id)

		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr), id)
		assert.Equal(t, types.ErrInvalidInput, appErr.Code, id)
	}
}

func TestWorkspace_ApplyRejectsForeignIDs(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "project")
	writeFile(t, filepath.Join(root, "main.tex"), []byte("teh\n"))
	outside := filepath.Join(parent, "x.tex")
	writeFile(t, outside, []byte("keep\n"))

	ws, err := Open(root, testConfig())
	require.NoError(t, err)
	corpus, err := ws.Load()
	require.NoError(t, err)

	// a corpus from the frontend naming a file outside the project
	corpus = append(corpus, types.FileBuffer{FileID: "../x.tex", FileName: "x.tex", Content: "keep\n"})
	written, err := ws.Apply(corpus, map[string]string{
		"main.tex": "the\n",
		"../x.tex": "overwritten\n",
	})
	require.Error(t, err)
	assert.Empty(t, written)

	data, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Equal(t, "keep\n", string(data))
	data, err = os.ReadFile(filepath.Join(root, "main.tex"))
	require.NoError(t, err)
	assert.Equal(t, "teh\n", string(data), "nothing is written when any id is rejected")
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), testConfig())
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrFileNotFound, appErr.Code)
}

func TestPreview(t *testing.T) {
	corpus := []types.FileBuffer{
		{FileID: "b.tex", Content: "same"},
		{FileID: "a.tex", Content: "old text"},
	}
	updated := map[string]string{
		"a.tex":       "new text",
		"b.tex":       "same",
		"missing.tex": "whatever",
	}

	diffs := Preview(corpus, updated)
	require.Len(t, diffs, 1)
	assert.Equal(t, "a.tex", diffs[0].FileID)
	assert.Equal(t, 3, diffs[0].Insertions)
	assert.Equal(t, 3, diffs[0].Deletions)
	assert.Contains(t, diffs[0].Diff, "new")
}

func TestWorkspace_Apply(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.tex"), []byte("teh one\n"))
	writeFile(t, filepath.Join(root, "sub", "main.tex"), []byte("teh two\n"))
	gbk, err := Encode("中文摘要 teh\n", EncodingGBK)
	require.NoError(t, err)
	writeFile(t, filepath.Join(root, "zh.tex"), gbk)

	ws, err := Open(root, testConfig())
	require.NoError(t, err)
	corpus, err := ws.Load()
	require.NoError(t, err)

	updated := map[string]string{}
	for _, f := range corpus {
		updated[f.FileID] = strings.ReplaceAll(f.Content, "teh", "the")
	}

	written, err := ws.Apply(corpus, updated)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.tex", "sub/main.tex", "zh.tex"}, written)

	data, err := os.ReadFile(filepath.Join(root, "sub", "main.tex"))
	require.NoError(t, err)
	assert.Equal(t, "the two\n", string(data))

	// written back in the original encoding
	data, err = os.ReadFile(filepath.Join(root, "zh.tex"))
	require.NoError(t, err)
	text, enc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EncodingGBK, enc)
	assert.Equal(t, "中文摘要 the\n", text)

	// backups of equal base names live in mirrored directories
	top, err := ws.Backups().GetLatestBackup(filepath.Join(ws.Root(), "main.tex"))
	require.NoError(t, err)
	nested, err := ws.Backups().GetLatestBackup(filepath.Join(ws.Root(), "sub", "main.tex"))
	require.NoError(t, err)
	assert.NotEqual(t, filepath.Dir(top), filepath.Dir(nested))

	backup, err := os.ReadFile(nested)
	require.NoError(t, err)
	assert.Equal(t, "teh two\n", string(backup))

	// backups are hidden from the corpus
	again, err := ws.Load()
	require.NoError(t, err)
	assert.Len(t, again, 3)
}

func TestWorkspace_ApplySkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.tex"), []byte("fine\n"))

	ws, err := Open(root, testConfig())
	require.NoError(t, err)
	corpus, err := ws.Load()
	require.NoError(t, err)

	written, err := ws.Apply(corpus, map[string]string{"main.tex": "fine\n"})
	require.NoError(t, err)
	assert.Empty(t, written)

	backups, err := ws.Backups().ListBackups(filepath.Join(ws.Root(), "main.tex"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestBackupManager(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tex")
	writeFile(t, path, []byte("v1"))

	m := NewBackupManager(dir, filepath.Join(dir, "backups"))
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	var created []string
	for i := 0; i < 4; i++ {
		b, err := m.CreateBackup(path)
		require.NoError(t, err)
		created = append(created, b)
	}

	list, err := m.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, created[3], list[0], "newest first")

	require.NoError(t, m.CleanupBackups(path, 2))
	list, err = m.ListBackups(path)
	require.NoError(t, err)
	assert.Equal(t, []string{created[3], created[2]}, list)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	require.NoError(t, m.Restore(list[0], path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	_, err = m.CreateBackup(filepath.Join(dir, "missing.tex"))
	assert.Error(t, err)
}

func TestBackupManager_NoBackups(t *testing.T) {
	dir := t.TempDir()
	m := NewBackupManager(dir, filepath.Join(dir, "none"))

	list, err := m.ListBackups(filepath.Join(dir, "main.tex"))
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = m.GetLatestBackup(filepath.Join(dir, "main.tex"))
	assert.Error(t, err)
}

func TestWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.tex"), []byte("start"))

	ws, err := Open(root, testConfig())
	require.NoError(t, err)

	w, err := ws.Watch(20 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, filepath.Join(root, "notes.txt"), []byte("ignored"))
	writeFile(t, filepath.Join(root, "main.tex"), []byte("changed"))

	select {
	case path := <-w.Changes():
		assert.Equal(t, filepath.Join(ws.Root(), "main.tex"), path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	ws, err := Open(t.TempDir(), testConfig())
	require.NoError(t, err)

	w, err := ws.Watch(0)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())

	_, ok := <-w.Changes()
	assert.False(t, ok)
}
