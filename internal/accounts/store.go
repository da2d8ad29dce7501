// Package accounts owns the catalog of registered accounts and the single
// active session. All durable state lives in the keystore; the in-memory
// session is re-derived from storage at startup and on every foreign change
// to the session key, so concurrently running processes converge on the same
// authentication state.
package accounts

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"critterdex/internal/keystore"
	"critterdex/internal/logging"
)

// Storage keys owned by this store. No other component reads or writes them.
const (
	AccountsKey = "critterdex-accounts"
	SessionKey  = "critterdex-current-session"
)

// DefaultTombstoneDelay is how long the tombstoned session record stays in
// storage before the key is deleted, giving other processes a window to
// observe the logout before the key disappears.
const DefaultTombstoneDelay = 100 * time.Millisecond

// Messages surfaced verbatim through Result.
const (
	msgFieldsRequired  = "Username and password are required"
	msgUsernameTaken   = "Username already exists"
	msgNoAccounts      = "No accounts found. Please sign up first."
	msgBadCredentials  = "Invalid username or password"
	msgAccountCreated  = "Account created successfully"
	msgLoginSuccessful = "Login successful"
)

// newID is a seam for tests; production IDs are uuids.
var newID = uuid.NewString

// SessionListener is notified whenever the active session changes. The bool
// is false when the session ended; the Session is then the zero value.
type SessionListener func(Session, bool)

// Store is the account store. Construct with New and release with Close.
type Store struct {
	ks             keystore.Store
	log            logging.Logger
	tombstoneDelay time.Duration

	mu          sync.Mutex
	current     *Session
	listeners   map[int]SessionListener
	nextID      int
	unsubscribe func()
}

// New builds a Store on top of ks, derives the initial session state from
// storage, and subscribes to foreign changes of the session key. A
// non-positive tombstoneDelay selects DefaultTombstoneDelay.
func New(ks keystore.Store, log logging.Logger, tombstoneDelay time.Duration) *Store {
	if tombstoneDelay <= 0 {
		tombstoneDelay = DefaultTombstoneDelay
	}
	s := &Store{
		ks:             ks,
		log:            logging.OrNop(log).With("component", "accounts"),
		tombstoneDelay: tombstoneDelay,
		listeners:      make(map[int]SessionListener),
	}

	ctx := context.Background()
	s.refreshFromStorage(ctx)

	s.unsubscribe = ks.Subscribe(func(ev keystore.Event) {
		if ev.Key != SessionKey {
			return
		}
		s.refreshFromStorage(context.Background())
	})
	return s
}

// Close removes the keystore subscription. It does not touch stored state.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Current returns a copy of the active session, if any.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// IsAuthenticated reports whether a session is active.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// OnSessionChange registers fn to run on every session transition. The
// returned function removes the registration and must be called on teardown.
func (s *Store) OnSessionChange(fn SessionListener) (remove func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Register creates a new account. It never establishes a session: a freshly
// registered visitor still has to authenticate.
func (s *Store) Register(ctx context.Context, username, password string) Result {
	if username == "" || password == "" {
		return Result{Success: false, Message: msgFieldsRequired}
	}

	list := s.loadAccounts(ctx)
	for _, a := range list {
		if a.Username == username {
			return Result{Success: false, Message: msgUsernameTaken}
		}
	}

	list = append(list, Account{ID: newID(), Username: username, Password: password})
	s.saveAccounts(ctx, list)
	return Result{Success: true, Message: msgAccountCreated}
}

// Authenticate matches the credentials against the registered accounts and,
// on success, persists an authenticated session record.
func (s *Store) Authenticate(ctx context.Context, username, password string) Result {
	if username == "" || password == "" {
		return Result{Success: false, Message: msgFieldsRequired}
	}

	list := s.loadAccounts(ctx)
	if len(list) == 0 {
		return Result{Success: false, Message: msgNoAccounts}
	}

	var match *Account
	for i := range list {
		if list[i].Username == username && list[i].Password == password {
			match = &list[i]
			break
		}
	}
	if match == nil {
		return Result{Success: false, Message: msgBadCredentials}
	}

	sess := Session{ID: match.ID, Username: match.Username, IsAuthenticated: true}
	s.setSession(&sess)

	data, err := json.Marshal(sess)
	if err != nil {
		s.log.Error(ctx, "marshal session failed", "error", err)
		return Result{Success: true, Message: msgLoginSuccessful}
	}
	if err := s.ks.Set(ctx, SessionKey, string(data)); err != nil {
		s.log.Error(ctx, "persist session failed", "error", err)
	}
	return Result{Success: true, Message: msgLoginSuccessful}
}

// EndSession tombstones the persisted session record, schedules deletion of
// the key after the tombstone delay, and clears in-memory state immediately.
// Callers observe the logout synchronously; the deferred delete only narrows
// the window in which another process could re-read a vanished key.
func (s *Store) EndSession(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	tombstone := *s.current
	tombstone.IsAuthenticated = false
	s.mu.Unlock()

	if data, err := json.Marshal(tombstone); err == nil {
		if err := s.ks.Set(ctx, SessionKey, string(data)); err != nil {
			s.log.Warn(ctx, "persist session tombstone failed", "error", err)
		}
	}

	time.AfterFunc(s.tombstoneDelay, func() {
		if err := s.ks.Delete(context.Background(), SessionKey); err != nil {
			s.log.Warn(context.Background(), "deferred session delete failed", "error", err)
		}
	})

	s.setSession(nil)
}

// refreshFromStorage re-derives in-memory session state from the session
// key. Anything other than a well-formed record with the authenticated flag
// set yields "no session"; malformed and tombstoned records are deleted so
// they are not re-parsed on every change.
func (s *Store) refreshFromStorage(ctx context.Context) {
	raw, ok, err := s.ks.Get(ctx, SessionKey)
	if err != nil {
		s.log.Warn(ctx, "read session failed", "error", err)
		s.setSession(nil)
		return
	}
	if !ok {
		s.setSession(nil)
		return
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.log.Warn(ctx, "stored session is corrupt, discarding", "error", err)
		s.deleteSessionKey(ctx)
		s.setSession(nil)
		return
	}
	if !sess.IsAuthenticated {
		s.deleteSessionKey(ctx)
		s.setSession(nil)
		return
	}
	s.setSession(&sess)
}

func (s *Store) deleteSessionKey(ctx context.Context) {
	if err := s.ks.Delete(ctx, SessionKey); err != nil {
		s.log.Warn(ctx, "delete session key failed", "error", err)
	}
}

// setSession swaps the in-memory session and notifies listeners when the
// session identity actually changed. Listeners run outside the lock.
func (s *Store) setSession(sess *Session) {
	s.mu.Lock()
	prev := s.current
	same := (prev == nil && sess == nil) ||
		(prev != nil && sess != nil && prev.ID == sess.ID)
	s.current = sess

	var fns []SessionListener
	if !same {
		fns = make([]SessionListener, 0, len(s.listeners))
		for _, fn := range s.listeners {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		if sess != nil {
			fn(*sess, true)
		} else {
			fn(Session{}, false)
		}
	}
}

// loadAccounts reads and parses the account list. Corrupt values are
// recovered to an empty list and the key is deleted so the bad payload is
// not parsed again.
func (s *Store) loadAccounts(ctx context.Context) []Account {
	raw, ok, err := s.ks.Get(ctx, AccountsKey)
	if err != nil {
		s.log.Warn(ctx, "read accounts failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var list []Account
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.log.Warn(ctx, "stored accounts are corrupt, discarding", "error", err)
		if err := s.ks.Delete(ctx, AccountsKey); err != nil {
			s.log.Warn(ctx, "delete accounts key failed", "error", err)
		}
		return nil
	}
	return list
}

// saveAccounts persists the full account list. Storage failures are logged,
// not surfaced: callers only ever see Result values.
func (s *Store) saveAccounts(ctx context.Context, list []Account) {
	data, err := json.Marshal(list)
	if err != nil {
		s.log.Error(ctx, "marshal accounts failed", "error", err)
		return
	}
	if err := s.ks.Set(ctx, AccountsKey, string(data)); err != nil {
		s.log.Error(ctx, "persist accounts failed", "error", err)
	}
}
