package realtime

import (
	"sync"

	"github.com/gofrs/uuid/v5"
)

// Registry tracks connected sessions by user and household. LocalRegistry
// serves one process; cross-node fan-out is layered on top by a Broker.
type Registry interface {
	// Add registers s, returning the session it replaced for the same user.
	Add(s *Session) *Session
	// Remove unregisters s if it is still the user's current session.
	Remove(s *Session) bool
	// RemoveUser unregisters whatever session the user has.
	RemoveUser(userID uuid.UUID) *Session
	User(userID uuid.UUID) *Session
	Household(householdID uuid.UUID) []*Session
	Len() int
}

type LocalRegistry struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*Session
	households map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewLocalRegistry() *LocalRegistry {
	return &LocalRegistry{
		users:      make(map[uuid.UUID]*Session),
		households: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (r *LocalRegistry) Add(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.removeLocked(s.UserID)
	r.users[s.UserID] = s
	if s.HouseholdID != nil {
		members, ok := r.households[*s.HouseholdID]
		if !ok {
			members = make(map[uuid.UUID]struct{})
			r.households[*s.HouseholdID] = members
		}
		members[s.UserID] = struct{}{}
	}
	return prev
}

func (r *LocalRegistry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.users[s.UserID] != s {
		return false
	}
	r.removeLocked(s.UserID)
	return true
}

func (r *LocalRegistry) RemoveUser(userID uuid.UUID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(userID)
}

// removeLocked drops the user from every household set and deletes sets
// left empty.
func (r *LocalRegistry) removeLocked(userID uuid.UUID) *Session {
	prev, ok := r.users[userID]
	if !ok {
		return nil
	}
	delete(r.users, userID)
	for householdID, members := range r.households {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.households, householdID)
		}
	}
	return prev
}

func (r *LocalRegistry) User(userID uuid.UUID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[userID]
}

func (r *LocalRegistry) Household(householdID uuid.UUID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.households[householdID]
	sessions := make([]*Session, 0, len(members))
	for userID := range members {
		if s, ok := r.users[userID]; ok {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

func (r *LocalRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

