package realtime

import (
	"sync"

	"github.com/gofrs/uuid/v5"
)

// Session is the outbound side of one connection.
type Session struct {
	UserID      uuid.UUID
	HouseholdID *uuid.UUID

	messages  chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(userID uuid.UUID, householdID *uuid.UUID, buffer int) *Session {
	return &Session{
		UserID:      userID,
		HouseholdID: householdID,
		messages:    make(chan Message, buffer),
		done:        make(chan struct{}),
	}
}

// deliver enqueues msg without blocking; false means the buffer was full or
// the session is closed.
func (s *Session) deliver(msg Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.messages <- msg:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the session is replaced or unsubscribed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
