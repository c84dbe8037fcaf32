package workspace

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"offleaf/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before a change is
// reported. Editors often write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports workspace files that were written or created.
type Watcher struct {
	fsw      *fsnotify.Watcher
	ws       *Workspace
	debounce time.Duration

	changes chan string
	errors  chan error

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool

	closeCh  chan struct{}
	closedWg sync.WaitGroup
	firing   sync.WaitGroup
}

// Watch starts watching every non-hidden directory of the workspace.
// debounce <= 0 uses DefaultDebounce.
func (w *Workspace) Watch(debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	wt := &Watcher{
		fsw:      fsw,
		ws:       w,
		debounce: debounce,
		changes:  make(chan string, 64),
		errors:   make(chan error, 8),
		pending:  make(map[string]*time.Timer),
		closeCh:  make(chan struct{}),
	}

	if w.single {
		err = fsw.Add(filepath.Dir(w.root))
	} else {
		err = wt.addTree(w.root)
	}
	if err != nil {
		fsw.Close()
		return nil, err
	}

	wt.closedWg.Add(1)
	go wt.processLoop()
	return wt, nil
}

func (wt *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return wt.fsw.Add(path)
	})
}

// Changes delivers the absolute path of each changed file.
func (wt *Watcher) Changes() <-chan string {
	return wt.changes
}

// Errors delivers watcher errors.
func (wt *Watcher) Errors() <-chan error {
	return wt.errors
}

// Close stops the watcher and closes both channels.
func (wt *Watcher) Close() error {
	wt.mu.Lock()
	if wt.closed {
		wt.mu.Unlock()
		return nil
	}
	wt.closed = true
	for _, t := range wt.pending {
		t.Stop()
	}
	wt.mu.Unlock()

	close(wt.closeCh)
	err := wt.fsw.Close()
	wt.closedWg.Wait()
	wt.firing.Wait()
	close(wt.changes)
	close(wt.errors)
	return err
}

func (wt *Watcher) processLoop() {
	defer wt.closedWg.Done()

	for {
		select {
		case <-wt.closeCh:
			return

		case ev, ok := <-wt.fsw.Events:
			if !ok {
				return
			}
			wt.handle(ev)

		case err, ok := <-wt.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", logger.Err(err))
			select {
			case wt.errors <- err:
			default:
			}
		}
	}
}

func (wt *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if wt.ws.single {
		if filepath.Clean(ev.Name) != wt.ws.root {
			return
		}
	} else if !wt.ws.Matches(ev.Name) {
		return
	}

	wt.mu.Lock()
	defer wt.mu.Unlock()
	if wt.closed {
		return
	}
	if t, ok := wt.pending[ev.Name]; ok {
		t.Reset(wt.debounce)
		return
	}
	name := ev.Name
	wt.pending[name] = time.AfterFunc(wt.debounce, func() { wt.fire(name) })
}

func (wt *Watcher) fire(path string) {
	wt.mu.Lock()
	delete(wt.pending, path)
	if wt.closed {
		wt.mu.Unlock()
		return
	}
	wt.firing.Add(1)
	wt.mu.Unlock()
	defer wt.firing.Done()

	select {
	case wt.changes <- path:
	case <-wt.closeCh:
	}
}
