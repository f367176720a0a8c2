package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/metrics"
)

const defaultMailboxSize = 256

// Handler processes one event. Returned errors and panics are logged by the
// bus and never reach the publisher.
type Handler func(ctx context.Context, event Event) error

type subscriber struct {
	name    string
	handler Handler
	mailbox chan Event
}

// Bus is an in-process publish/subscribe backbone. Each subscriber owns a
// buffered mailbox drained by its own goroutine, so Publish only enqueues.
// A full mailbox drops the event for that subscriber. Events published while
// a tag has no subscribers are dropped.
type Bus struct {
	mu          sync.RWMutex
	byTag       map[Tag][]*subscriber
	all         []*subscriber
	closed      bool
	wg          sync.WaitGroup
	mailboxSize int
	logger      *logrus.Logger
	metrics     *metrics.Metrics
}

func NewBus(logger *logrus.Logger, m *metrics.Metrics, mailboxSize int) *Bus {
	if mailboxSize < 1 {
		mailboxSize = defaultMailboxSize
	}
	return &Bus{
		byTag:       make(map[Tag][]*subscriber),
		mailboxSize: mailboxSize,
		logger:      logger,
		metrics:     m,
	}
}

// Subscribe registers handler for the given tags and starts its dispatch
// goroutine. Events reach one subscriber in publish order.
func (b *Bus) Subscribe(name string, handler Handler, tags ...Tag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.logger.WithField("subscriber", name).Warn("EventBus.Subscribe.closed")
		return
	}

	sub := &subscriber{
		name:    name,
		handler: handler,
		mailbox: make(chan Event, b.mailboxSize),
	}
	for _, tag := range tags {
		b.byTag[tag] = append(b.byTag[tag], sub)
	}
	b.all = append(b.all, sub)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for event := range sub.mailbox {
			b.dispatch(sub, event)
		}
	}()
}

// Publish enqueues event for every subscriber of its tag without waiting.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	tag := event.Tag()
	b.metrics.IncEventsPublished(string(tag))
	if b.logger.IsLevelEnabled(logrus.DebugLevel) {
		b.logger.WithField("tag", tag).Debug("EventBus.Publish " + spew.Sdump(event))
	}

	subs := b.byTag[tag]
	if len(subs) == 0 {
		b.logger.WithField("tag", tag).Debug("EventBus.Publish.noSubscribers")
		return
	}
	for _, sub := range subs {
		select {
		case sub.mailbox <- event:
		default:
			b.metrics.IncEventsDropped(string(tag), sub.name)
			b.logger.WithFields(logrus.Fields{
				"tag":        tag,
				"subscriber": sub.name,
			}).Warn("EventBus.Publish.mailboxFull")
		}
	}
}

func (b *Bus) dispatch(sub *subscriber, event Event) {
	log := b.logger.WithFields(logrus.Fields{
		"tag":        event.Tag(),
		"subscriber": sub.name,
		"actor":      event.Actor(),
	})
	defer func() {
		if r := recover(); r != nil {
			b.metrics.IncSubscriberFailures(string(event.Tag()), sub.name)
			log.WithError(fmt.Errorf("panic: %v", r)).Error("EventBus.Dispatch.Panic")
		}
	}()

	if err := sub.handler(context.Background(), event); err != nil {
		b.metrics.IncSubscriberFailures(string(event.Tag()), sub.name)
		log.WithError(err).Error("EventBus.Dispatch.Error")
	}
}

// Close stops accepting events, lets every subscriber drain its mailbox and
// waits for them to finish.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.all {
		close(sub.mailbox)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
