package realtime

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("realtime: stream closed")

// Stream is the continuous message feed of one subscription. It is not
// restartable: once Run returns the stream is closed.
type Stream struct {
	notifier *Notifier
	session  *Session
}

func (s *Stream) Session() *Session {
	return s.session
}

// Run passes messages and periodic heartbeats to send until ctx is cancelled,
// the session is replaced or unsubscribed, or send fails. Queued messages are
// never discarded in favour of heartbeats.
func (s *Stream) Run(ctx context.Context, send func(Message) error) error {
	defer s.Close()

	ticker := time.NewTicker(s.notifier.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.session.done:
			return nil
		case msg := <-s.session.messages:
			if err := send(msg); err != nil {
				return err
			}
		case at := <-ticker.C:
			if err := send(Message{Type: MessageHeartbeat, SentAt: at.UTC()}); err != nil {
				return err
			}
		}
	}
}

// Close releases the session. A newer session for the same user is left alone.
func (s *Stream) Close() {
	s.notifier.release(s.session)
}

// Next blocks for the next queued message. Used by callers that poll rather
// than Run, and by tests.
func (s *Stream) Next(ctx context.Context) (Message, error) {
	select {
	case msg := <-s.session.messages:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-s.session.done:
		select {
		case msg := <-s.session.messages:
			return msg, nil
		default:
			return Message{}, ErrClosed
		}
	}
}
