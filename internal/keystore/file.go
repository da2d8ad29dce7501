package keystore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"critterdex/internal/common"
	"critterdex/internal/logging"
)

const (
	keyFileSuffix = ".kv"
	tmpFileSuffix = ".tmp"
)

// FileStore keeps one file per key under a storage directory and watches the
// directory with fsnotify, so writes made by other processes surface as
// events. Own writes are suppressed by comparing the on-disk content against
// the handle's snapshot: an event whose content matches what this handle
// already knows announces nothing.
type FileStore struct {
	dir     string
	watcher *fsnotify.Watcher
	log     logging.Logger

	mu       sync.Mutex
	subs     map[int]Handler
	nextID   int
	snapshot map[string]string
	closed   bool

	done chan struct{}
}

var _ Store = (*FileStore)(nil)

// OpenFile opens (creating if needed) a file-backed keystore rooted at dir
// and starts the directory watcher.
func OpenFile(dir string, log logging.Logger) (*FileStore, error) {
	log = logging.OrNop(log).With("component", "keystore", "backend", "file")

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	s := &FileStore{
		dir:      dir,
		watcher:  watcher,
		log:      log,
		subs:     make(map[int]Handler),
		snapshot: make(map[string]string),
		done:     make(chan struct{}),
	}

	if err := s.loadSnapshot(); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go s.watchLoop()
	return s, nil
}

func (s *FileStore) loadSnapshot() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.dir, err)
	}
	for _, e := range entries {
		key, ok := keyFromFileName(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		s.snapshot[key] = string(data)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(s.keyPath(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key %q: %w", key, err)
	}
	return string(data), true, nil
}

// Set writes to a temp file and renames it into place, so other processes
// never observe a partially written value.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrorClosed
	}

	path := s.keyPath(key)
	tmp := path + tmpFileSuffix
	if err := os.WriteFile(tmp, []byte(value), 0o660); err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename key %q: %w", key, err)
	}
	s.snapshot[key] = value
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrorClosed
	}
	if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete key %q: %w", key, err)
	}
	delete(s.snapshot, key)
	return nil
}

func (s *FileStore) Subscribe(h Handler) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = h
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.subs = make(map[int]Handler)
	s.mu.Unlock()

	err := s.watcher.Close()
	<-s.done
	return err
}

func (s *FileStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrorClosed
	}
	return nil
}

func (s *FileStore) watchLoop() {
	defer close(s.done)
	ctx := context.Background()

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			key, valid := keyFromFileName(filepath.Base(ev.Name))
			if !valid {
				continue
			}
			s.refreshKey(key)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn(ctx, "watcher error", "error", err)
		}
	}
}

// refreshKey re-reads one key from disk and notifies subscribers when the
// value differs from the snapshot. Own writes already updated the snapshot
// under the same mutex, so their watcher echoes compare equal and stay quiet.
func (s *FileStore) refreshKey(key string) {
	data, err := os.ReadFile(s.keyPath(key))
	present := err == nil

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	prev, existed := s.snapshot[key]
	var ev Event
	switch {
	case present && (!existed || prev != string(data)):
		s.snapshot[key] = string(data)
		ev = Event{Key: key, Value: string(data), Present: true}
	case !present && existed:
		delete(s.snapshot, key)
		ev = Event{Key: key}
	default:
		s.mu.Unlock()
		return
	}

	handlers := make([]Handler, 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

func (s *FileStore) keyPath(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+keyFileSuffix)
}

func keyFromFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, keyFileSuffix) {
		return "", false
	}
	key, err := url.QueryUnescape(strings.TrimSuffix(name, keyFileSuffix))
	if err != nil {
		return "", false
	}
	return key, true
}
