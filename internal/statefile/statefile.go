// Package statefile persists workspace state to disk so open tabs and the
// active workspace survive restarts. Writes are atomic and guarded by a
// cross-process file lock; an fsnotify watcher reports out-of-band rewrites
// (for example by a second app instance).
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/uri"
)

const (
	stateFileName = "workspace-state.json"
	lockFileName  = "workspace-state.lock"
	lockTimeout   = 2 * time.Second
)

// WorkspaceEntry is the persisted state of one workspace.
type WorkspaceEntry struct {
	Location        uri.URI   `json:"location,omitempty"`
	LocalClusterURI uri.URI   `json:"localClusterUri"`
	Documents       docs.List `json:"documents"`
}

// State is the persisted shape: the active root cluster plus every
// workspace keyed by its root cluster URI.
type State struct {
	RootClusterURI uri.URI                    `json:"rootClusterUri,omitempty"`
	Workspaces     map[uri.URI]WorkspaceEntry `json:"workspaces"`
}

// Store reads and writes the state file.
type Store struct {
	dir  string
	lock *flock.Flock
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("statefile: create dir: %w", err)
	}
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

func (s *Store) path() string { return filepath.Join(s.dir, stateFileName) }

// Load reads the persisted state. A missing file yields an empty state.
func (s *Store) Load() (*State, error) {
	if err := s.lockWithTimeout(); err != nil {
		return nil, err
	}
	defer s.lock.Unlock() //nolint:errcheck

	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Workspaces: make(map[uri.URI]WorkspaceEntry)}, nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("statefile: parse %s: %w", s.path(), err)
	}
	if state.Workspaces == nil {
		state.Workspaces = make(map[uri.URI]WorkspaceEntry)
	}
	return &state, nil
}

// Save atomically replaces the persisted state.
func (s *Store) Save(state *State) error {
	if err := s.lockWithTimeout(); err != nil {
		return err
	}
	defer s.lock.Unlock() //nolint:errcheck

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.path(), data, 0600)
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory and renames it into place, so a concurrent reader never observes
// a partial file. Other stores that persist next to the state file share it.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	// Unix: rename atomically replaces the destination.
	// Windows: rename fails when the destination exists; remove and retry.
	if err := os.Rename(tmpPath, path); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(path)
			return os.Rename(tmpPath, path)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *Store) lockWithTimeout() error {
	deadline := time.Now().Add(lockTimeout)
	for {
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("statefile: lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("statefile: lock held by another process")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// Watch invokes onChange whenever the state file is rewritten by someone
// else. It returns a stop function. Events are debounced per write burst by
// fsnotify's own coalescing; callers should treat onChange as a hint to
// reload, not as a payload.
func (s *Store) Watch(onChange func()) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors and atomic renames replace the file
	// inode, which would silently detach a file-level watch.
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != stateFileName {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
