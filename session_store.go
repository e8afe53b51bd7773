package authflow

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	goerrors "github.com/goliatone/go-errors"
)

// SessionKeyName is the fixed storage key holding the session token.
const SessionKeyName = "authToken"

// SessionListener is notified when the stored token changes from another
// process instance. Local writes never echo back to the writing instance.
type SessionListener func(token string, present bool)

// SessionStoreOption customizes store construction.
type SessionStoreOption func(*SessionStore)

// WithSessionLogger overrides the logger used for watcher errors.
func WithSessionLogger(logger Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// SessionStore owns the persisted session token. The token is an opaque
// string written wholesale under a fixed key file inside dir; replace, not
// merge. Writers are the login and verification flows, readers are the
// route guard and whatever else needs authentication status.
type SessionStore struct {
	mu        sync.Mutex
	dir       string
	key       string
	cached    string
	present   bool
	listeners map[int]SessionListener
	nextID    int
	watcher   *fsnotify.Watcher
	logger    Logger
	closed    bool
}

// NewSessionStore opens (creating if needed) the storage directory and
// starts watching it for changes made by other process instances.
func NewSessionStore(dir string, opts ...SessionStoreOption) (*SessionStore, error) {
	if dir == "" {
		return nil, goerrors.New("session storage directory is required", goerrors.CategoryBadInput)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create session storage directory")
	}

	s := &SessionStore{
		dir:       dir,
		key:       SessionKeyName,
		listeners: map[int]SessionListener{},
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.cached, s.present = s.readFile()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create session storage watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not watch session storage directory")
	}

	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Get returns the stored token, or absent. Absence is a value, never an
// error.
func (s *SessionStore) Get() (string, bool) {
	return s.readFile()
}

// Set stores the token, effective immediately for this and future process
// instances. Storage failures are reported to the caller.
func (s *SessionStore) Set(token string) error {
	s.mu.Lock()
	s.cached = token
	s.present = true
	s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, s.key+".*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, ErrStorageUnavailable.Error())
	}

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return goerrors.Wrap(err, goerrors.CategoryInternal, ErrStorageUnavailable.Error())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return goerrors.Wrap(err, goerrors.CategoryInternal, ErrStorageUnavailable.Error())
	}

	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		os.Remove(tmp.Name())
		return goerrors.Wrap(err, goerrors.CategoryInternal, ErrStorageUnavailable.Error())
	}

	return nil
}

// Clear removes the stored token.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	s.cached = ""
	s.present = false
	s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, ErrStorageUnavailable.Error())
	}
	return nil
}

// Subscribe registers a listener for foreign changes and returns a cancel
// function.
func (s *SessionStore) Subscribe(fn SessionListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close stops the watcher. The stored token is left in place.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher != nil {
		return watcher.Close()
	}
	return nil
}

func (s *SessionStore) path() string {
	return filepath.Join(s.dir, s.key)
}

func (s *SessionStore) readFile() (string, bool) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("session storage read error: %v", err)
		}
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func (s *SessionStore) watch() {
	s.mu.Lock()
	watcher := s.watcher
	s.mu.Unlock()
	if watcher == nil {
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("session storage watcher error: %v", err)
		}
	}
}

func (s *SessionStore) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != s.key {
		return
	}

	relevant := event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
	if !relevant {
		return
	}

	token, present := s.readFile()

	s.mu.Lock()
	// Our own writes land in the cache before they hit disk, so a value
	// that matches the cache is not a foreign change.
	if token == s.cached && present == s.present {
		s.mu.Unlock()
		return
	}
	s.cached = token
	s.present = present

	listeners := make([]SessionListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		if fn != nil {
			fn(token, present)
		}
	}
}
