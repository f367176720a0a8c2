package realtime

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/metrics"
)

const (
	DefaultHeartbeat = 30 * time.Second
	DefaultBuffer    = 64
)

// Broker carries sends to every node. A nil Broker delivers locally only.
type Broker interface {
	PublishUser(ctx context.Context, userID uuid.UUID, msg Message) error
	PublishHousehold(ctx context.Context, householdID uuid.UUID, msg Message, exclude *uuid.UUID) error
}

type Options struct {
	Heartbeat time.Duration
	Buffer    int
	Broker    Broker
}

// Notifier fans messages out to connected sessions.
type Notifier struct {
	registry  Registry
	broker    Broker
	heartbeat time.Duration
	buffer    int
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewNotifier(registry Registry, logger *logrus.Logger, m *metrics.Metrics, opts Options) *Notifier {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.Buffer < 1 {
		opts.Buffer = DefaultBuffer
	}
	return &Notifier{
		registry:  registry,
		broker:    opts.Broker,
		heartbeat: opts.Heartbeat,
		buffer:    opts.Buffer,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// SetBroker switches sends to go through b. Call before serving traffic.
func (n *Notifier) SetBroker(b Broker) {
	n.broker = b
}

// Subscribe registers a session for user, replacing and closing any prior one.
func (n *Notifier) Subscribe(userID uuid.UUID, householdID *uuid.UUID) *Stream {
	s := newSession(userID, householdID, n.buffer)
	if prev := n.registry.Add(s); prev != nil {
		prev.close()
		n.metrics.SessionClosed()
		n.logger.WithField("userID", userID).Info("Notifier.Subscribe.Replaced")
	}
	n.metrics.SessionOpened()
	n.logger.WithFields(logrus.Fields{
		"userID":      userID,
		"householdID": householdID,
	}).Info("Notifier.Subscribe")
	return &Stream{notifier: n, session: s}
}

// Unsubscribe closes and removes the user's session, if any.
func (n *Notifier) Unsubscribe(userID uuid.UUID) {
	if s := n.registry.RemoveUser(userID); s != nil {
		n.closeSession(s)
	}
}

func (n *Notifier) release(s *Session) {
	if n.registry.Remove(s) {
		n.closeSession(s)
		return
	}
	s.close()
}

func (n *Notifier) closeSession(s *Session) {
	s.close()
	n.metrics.SessionClosed()
	n.logger.WithField("userID", s.UserID).Info("Notifier.Unsubscribe")
}

// SendToUser delivers msg to the user's session. A user without a session
// is not an error.
func (n *Notifier) SendToUser(ctx context.Context, userID uuid.UUID, msg Message) {
	if n.broker != nil {
		if err := n.broker.PublishUser(ctx, userID, msg); err != nil {
			n.logger.WithError(err).WithField("userID", userID).Error("Notifier.SendToUser.Broker.Error")
		}
		return
	}
	n.DeliverUser(userID, msg)
}

// SendToHousehold delivers msg to every connected household member except
// exclude.
func (n *Notifier) SendToHousehold(ctx context.Context, householdID uuid.UUID, msg Message, exclude *uuid.UUID) {
	if n.broker != nil {
		if err := n.broker.PublishHousehold(ctx, householdID, msg, exclude); err != nil {
			n.logger.WithError(err).WithField("householdID", householdID).Error("Notifier.SendToHousehold.Broker.Error")
		}
		return
	}
	n.DeliverHousehold(householdID, msg, exclude)
}

// DeliverUser is the local half of SendToUser.
func (n *Notifier) DeliverUser(userID uuid.UUID, msg Message) {
	if s := n.registry.User(userID); s != nil {
		n.deliver(s, msg)
	}
}

// DeliverHousehold is the local half of SendToHousehold.
func (n *Notifier) DeliverHousehold(householdID uuid.UUID, msg Message, exclude *uuid.UUID) {
	for _, s := range n.registry.Household(householdID) {
		if exclude != nil && s.UserID == *exclude {
			continue
		}
		n.deliver(s, msg)
	}
}

func (n *Notifier) deliver(s *Session, msg Message) {
	if msg.SentAt.IsZero() {
		msg.SentAt = n.now().UTC()
	}
	if !s.deliver(msg) {
		n.metrics.IncRealtimeDropped()
		n.logger.WithFields(logrus.Fields{
			"userID": s.UserID,
			"type":   msg.Type,
		}).Warn("Notifier.Deliver.Dropped")
		return
	}
	n.metrics.IncRealtimeMessages(string(msg.Type))
}

// Connected reports the number of local sessions.
func (n *Notifier) Connected() int {
	return n.registry.Len()
}
