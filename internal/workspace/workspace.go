package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"offleaf/internal/logger"
	"offleaf/internal/types"
)

// Workspace is a project directory, or a single file, whose text files form
// a search corpus. It remembers each file's on-disk encoding so edits are
// written back the way they were read.
type Workspace struct {
	root    string
	single  bool
	cfg     types.WorkspaceConfig
	backups *BackupManager

	mu        sync.Mutex
	encodings map[string]Encoding
}

// Open prepares a workspace rooted at root, which may be a directory or a
// single file. A relative cfg.BackupDir is resolved against the project
// directory.
func Open(root string, cfg types.WorkspaceConfig) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "invalid workspace path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewAppErrorWithDetails(types.ErrFileNotFound, "workspace not found", root, err)
		}
		return nil, types.NewAppError(types.ErrIO, "failed to stat workspace", err)
	}

	projectDir := abs
	if !info.IsDir() {
		projectDir = filepath.Dir(abs)
	}
	backupDir := cfg.BackupDir
	if backupDir != "" && !filepath.IsAbs(backupDir) {
		backupDir = filepath.Join(projectDir, backupDir)
	}

	logger.Debug("workspace opened",
		logger.String("root", abs),
		logger.Bool("singleFile", !info.IsDir()))
	return &Workspace{
		root:      abs,
		single:    !info.IsDir(),
		cfg:       cfg,
		backups:   NewBackupManager(projectDir, backupDir),
		encodings: make(map[string]Encoding),
	}, nil
}

// Root returns the absolute workspace path.
func (w *Workspace) Root() string {
	return w.root
}

// Backups returns the workspace's backup manager.
func (w *Workspace) Backups() *BackupManager {
	return w.backups
}

// Path returns the absolute path of the file identified by fileID. IDs that
// FileID would not produce, such as "../x" or "a/../b", are rejected.
func (w *Workspace) Path(fileID string) (string, error) {
	path := w.root
	if !w.single {
		path = filepath.Join(w.root, filepath.FromSlash(fileID))
	}
	if id, ok := w.FileID(path); !ok || id != fileID {
		return "", types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid file id", fileID, nil)
	}
	return path, nil
}

// FileID returns the ID of the file at the absolute path, or false when the
// path lies outside the workspace.
func (w *Workspace) FileID(path string) (string, bool) {
	if w.single {
		return filepath.Base(w.root), filepath.Clean(path) == w.root
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Matches reports whether path has one of the workspace extensions.
func (w *Workspace) Matches(path string) bool {
	if len(w.cfg.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.cfg.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Load reads every matching file into a corpus ordered by FileID. FileID is
// the slash-separated path relative to the root; hidden directories are
// skipped.
func (w *Workspace) Load() ([]types.FileBuffer, error) {
	if w.single {
		buf, err := w.loadFile(w.root, filepath.Base(w.root))
		if err != nil {
			return nil, err
		}
		return []types.FileBuffer{buf}, nil
	}

	var corpus []types.FileBuffer
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.Matches(path) {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		buf, err := w.loadFile(path, filepath.ToSlash(rel))
		if err != nil {
			logger.Warn("skipping unreadable file", logger.String("path", path), logger.Err(err))
			return nil
		}
		corpus = append(corpus, buf)
		return nil
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrIO, "failed to walk workspace", err)
	}

	sort.Slice(corpus, func(i, j int) bool { return corpus[i].FileID < corpus[j].FileID })
	logger.Info("workspace loaded",
		logger.String("root", w.root),
		logger.Int("files", len(corpus)))
	return corpus, nil
}

func (w *Workspace) loadFile(path, fileID string) (types.FileBuffer, error) {
	content, enc, err := ReadFile(path)
	if err != nil {
		return types.FileBuffer{}, err
	}
	w.mu.Lock()
	w.encodings[fileID] = enc
	w.mu.Unlock()
	return types.FileBuffer{FileID: fileID, FileName: filepath.Base(path), Content: content}, nil
}

// ReadFile reads and decodes a single text file.
func ReadFile(path string) (string, Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", types.NewAppErrorWithDetails(types.ErrFileNotFound, "file not found", path, err)
		}
		return "", "", types.NewAppError(types.ErrIO, "failed to read file", err)
	}
	return Decode(data)
}

// FileDiff previews the change to one file.
type FileDiff struct {
	FileID     string `json:"file_id"`
	Diff       string `json:"diff"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
}

// Preview diffs every changed buffer in updated against corpus, ordered by
// FileID. Unchanged and unknown files are left out.
func Preview(corpus []types.FileBuffer, updated map[string]string) []FileDiff {
	dmp := diffmatchpatch.New()

	var out []FileDiff
	for _, f := range changedFiles(corpus, updated) {
		diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(f.Content, updated[f.FileID], false))
		fd := FileDiff{FileID: f.FileID, Diff: dmp.DiffPrettyText(diffs)}
		for _, d := range diffs {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				fd.Insertions += len([]rune(d.Text))
			case diffmatchpatch.DiffDelete:
				fd.Deletions += len([]rune(d.Text))
			}
		}
		out = append(out, fd)
	}
	return out
}

func changedFiles(corpus []types.FileBuffer, updated map[string]string) []types.FileBuffer {
	var out []types.FileBuffer
	for _, f := range corpus {
		content, ok := updated[f.FileID]
		if ok && content != f.Content {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	return out
}

// Apply writes every changed buffer of updated back to disk in the file's
// original encoding, after backing it up. It returns the FileIDs written.
// Nothing is written when a FileID does not name a file of the workspace. A
// failed write restores that file from its backup and stops.
func (w *Workspace) Apply(corpus []types.FileBuffer, updated map[string]string) ([]string, error) {
	changed := changedFiles(corpus, updated)
	for _, f := range changed {
		if _, err := w.Path(f.FileID); err != nil {
			logger.Warn("rejected change outside the workspace", logger.String("fileID", f.FileID))
			return nil, err
		}
	}

	var written []string
	for _, f := range changed {
		if err := w.write(f.FileID, updated[f.FileID]); err != nil {
			return written, err
		}
		written = append(written, f.FileID)
	}

	logger.Info("workspace changes applied", logger.Int("files", len(written)))
	return written, nil
}

func (w *Workspace) write(fileID, content string) error {
	path, err := w.Path(fileID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	enc := w.encodings[fileID]
	w.mu.Unlock()

	data, err := Encode(content, enc)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrFileNotFound, "file not found", path, err)
	}

	backup, err := w.backups.CreateBackup(path)
	if err != nil {
		return types.NewAppError(types.ErrIO, "failed to create backup", err)
	}

	if err := os.WriteFile(path, data, info.Mode().Perm()); err != nil {
		logger.Error("failed to write file", err, logger.String("path", path))
		if rerr := w.backups.Restore(backup, path); rerr != nil {
			logger.Error("failed to restore file after write error", rerr, logger.String("path", path))
		}
		return types.NewAppError(types.ErrIO, fmt.Sprintf("failed to write %s", fileID), err)
	}

	if w.cfg.KeepBackups > 0 {
		if err := w.backups.CleanupBackups(path, w.cfg.KeepBackups); err != nil {
			logger.Warn("backup cleanup failed", logger.String("path", path), logger.Err(err))
		}
	}
	return nil
}
