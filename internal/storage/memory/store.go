// Package memory is a snapshot-isolated, in-process implementation of the
// storage contracts. A write transaction works on a private copy of the state
// and swaps it in on commit, so rollbacks discard every staged change.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

type userBadgeKey struct {
	userID  uuid.UUID
	badgeID uuid.UUID
}

type state struct {
	missions     map[uuid.UUID]*models.Mission
	transactions map[uuid.UUID]*models.Transaction
	badges       map[uuid.UUID]*models.Badge
	userBadges   map[userBadgeKey]*models.UserBadge
	families     map[uuid.UUID]*models.FamilyGroup
	categories   map[uuid.UUID]*models.Category
	templates    map[uuid.UUID]*models.Template
}

func newState() *state {
	return &state{
		missions:     make(map[uuid.UUID]*models.Mission),
		transactions: make(map[uuid.UUID]*models.Transaction),
		badges:       make(map[uuid.UUID]*models.Badge),
		userBadges:   make(map[userBadgeKey]*models.UserBadge),
		families:     make(map[uuid.UUID]*models.FamilyGroup),
		categories:   make(map[uuid.UUID]*models.Category),
		templates:    make(map[uuid.UUID]*models.Template),
	}
}

// clone copies the maps. Stored values are never mutated in place, only
// replaced, so sharing the pointers between snapshots is safe.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.missions {
		c.missions[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.badges {
		c.badges[k] = v
	}
	for k, v := range s.userBadges {
		c.userBadges[k] = v
	}
	for k, v := range s.families {
		c.families[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.templates {
		c.templates[k] = v
	}
	return c
}

// access abstracts where a table reads and writes: the committed state behind
// locks, or a transaction's private snapshot.
type access interface {
	read(fn func(*state))
	write(fn func(*state) error) error
}

// Store holds the committed state. writeMu serialises every writer, both
// transactions and single-statement writes, so a commit can never overwrite a
// change made after its snapshot was taken.
type Store struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	current *state
}

func New() *Store {
	return &Store{current: newState()}
}

// NewStorage returns a storage.Storage backed by a fresh Store.
func NewStorage() (*storage.Storage, *Store) {
	s := New()
	return storage.NewStorage(s.Tables(), s), s
}

func (s *Store) read(fn func(*state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.current)
}

func (s *Store) write(fn func(*state) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.current)
}

// Tables returns tables operating directly on committed state.
func (s *Store) Tables() storage.Tables {
	return tablesFor(s)
}

// Begin blocks until no other writer is active, then snapshots the state.
func (s *Store) Begin(ctx context.Context) (*storage.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.writeMu.Lock()

	s.mu.RLock()
	snapshot := s.current.clone()
	s.mu.RUnlock()

	t := &tx{store: s, snapshot: snapshot}
	return storage.NewWriter(t, tablesFor(t)), nil
}

var errTxDone = errors.New("memory: transaction already finished")

type tx struct {
	store    *Store
	snapshot *state
	done     bool
}

func (t *tx) read(fn func(*state)) {
	fn(t.snapshot)
}

func (t *tx) write(fn func(*state) error) error {
	if t.done {
		return errTxDone
	}
	return fn(t.snapshot)
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.store.mu.Lock()
	t.store.current = t.snapshot
	t.store.mu.Unlock()
	t.store.writeMu.Unlock()
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.writeMu.Unlock()
	return nil
}

func tablesFor(a access) storage.Tables {
	return storage.Tables{
		Missions:     &missionTable{a: a},
		Transactions: &transactionTable{a: a},
		Badges:       &badgeTable{a: a},
		UserBadges:   &userBadgeTable{a: a},
		Families:     &familyTable{a: a},
		Categories:   &categoryTable{a: a},
		Templates:    &templateTable{a: a},
	}
}
