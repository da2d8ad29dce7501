// Package favorites owns the per-account set of favorited catalog record
// ids. The set exists only while a session is active: it is loaded from the
// keystore when a session begins, cleared from memory (not from storage)
// when the session ends, and kept in sync with foreign writes to the active
// account's favorites key.
package favorites

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"critterdex/internal/accounts"
	"critterdex/internal/keystore"
	"critterdex/internal/logging"
)

// KeyPrefix scopes favorites keys; the full key is KeyPrefix + "-" + account id.
const KeyPrefix = "critterdex-user-favorites"

// KeyFor returns the storage key holding the favorites of one account.
func KeyFor(accountID string) string {
	return KeyPrefix + "-" + accountID
}

// Store is the favorites store. It has a read-only dependency on the account
// store for the active account id. Construct with New, release with Close.
type Store struct {
	ks  keystore.Store
	log logging.Logger

	mu        sync.Mutex
	accountID string // empty when no session is active
	ids       []int  // insertion order, no duplicates

	removeSessionListener func()
	unsubscribe           func()
}

// New builds a Store, loads favorites for the currently active account (if
// any), and wires up session-change and storage-change notifications.
func New(ks keystore.Store, accts *accounts.Store, log logging.Logger) *Store {
	s := &Store{
		ks:  ks,
		log: logging.OrNop(log).With("component", "favorites"),
	}

	ctx := context.Background()
	if sess, ok := accts.Current(); ok {
		s.load(ctx, sess.ID)
	}

	s.removeSessionListener = accts.OnSessionChange(func(sess accounts.Session, active bool) {
		if active {
			s.load(context.Background(), sess.ID)
		} else {
			s.clear()
		}
	})

	s.unsubscribe = ks.Subscribe(s.onStorageEvent)
	return s
}

// Close removes both subscriptions. Stored favorites are left untouched.
func (s *Store) Close() {
	if s.removeSessionListener != nil {
		s.removeSessionListener()
		s.removeSessionListener = nil
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Add inserts id into the favorites set and persists the whole set. Without
// an active session it does nothing. Re-adding a present id performs no
// state change and no storage write.
func (s *Store) Add(ctx context.Context, id int) {
	s.mu.Lock()
	if s.accountID == "" || slices.Contains(s.ids, id) {
		s.mu.Unlock()
		return
	}
	s.ids = append(s.ids, id)
	key, ids := KeyFor(s.accountID), slices.Clone(s.ids)
	s.mu.Unlock()

	s.persist(ctx, key, ids)
}

// Remove deletes id from the favorites set and persists the set
// unconditionally: unlike Add, this path writes to storage even when id was
// never a favorite. Callers relying on write-observation depend on that.
func (s *Store) Remove(ctx context.Context, id int) {
	s.mu.Lock()
	if s.accountID == "" {
		s.mu.Unlock()
		return
	}
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
	}
	key, ids := KeyFor(s.accountID), slices.Clone(s.ids)
	s.mu.Unlock()

	s.persist(ctx, key, ids)
}

// IsFavorite reports membership against in-memory state only.
func (s *Store) IsFavorite(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, id)
}

// List returns a copy of the favorites in insertion order.
func (s *Store) List() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

func (s *Store) persist(ctx context.Context, key string, ids []int) {
	data, err := json.Marshal(ids)
	if err != nil {
		s.log.Error(ctx, "marshal favorites failed", "error", err)
		return
	}
	if err := s.ks.Set(ctx, key, string(data)); err != nil {
		s.log.Error(ctx, "persist favorites failed", "key", key, "error", err)
	}
}

// load replaces in-memory state with the persisted favorites of accountID.
// A corrupt value is recovered to an empty set; the key is left in place so
// a concurrent writer's valid value is not destroyed.
func (s *Store) load(ctx context.Context, accountID string) {
	var ids []int
	raw, ok, err := s.ks.Get(ctx, KeyFor(accountID))
	switch {
	case err != nil:
		s.log.Warn(ctx, "read favorites failed", "error", err)
	case ok:
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			s.log.Warn(ctx, "stored favorites are corrupt, starting empty", "error", err)
			ids = nil
		}
	}

	s.mu.Lock()
	s.accountID = accountID
	s.ids = ids
	s.mu.Unlock()
}

// clear drops in-memory state without touching storage.
func (s *Store) clear() {
	s.mu.Lock()
	s.accountID = ""
	s.ids = nil
	s.mu.Unlock()
}

// onStorageEvent applies foreign writes to the ACTIVE account's favorites
// key. Events for other keys, or for a previous account's key after the
// session changed, are ignored.
func (s *Store) onStorageEvent(ev keystore.Event) {
	s.mu.Lock()
	if s.accountID == "" || ev.Key != KeyFor(s.accountID) {
		s.mu.Unlock()
		return
	}

	if !ev.Present {
		s.ids = nil
		s.mu.Unlock()
		return
	}

	var ids []int
	if err := json.Unmarshal([]byte(ev.Value), &ids); err != nil {
		s.mu.Unlock()
		s.log.Warn(context.Background(), "favorites update is not an array, ignoring", "error", err)
		return
	}
	s.ids = ids
	s.mu.Unlock()
}
