package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/metrics"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/testutil"
)

func newTestNotifier(t *testing.T, opts Options) *Notifier {
	t.Helper()
	return NewNotifier(NewLocalRegistry(), testutil.Logger(), metrics.New(prometheus.NewRegistry()), opts)
}

// drain returns every message queued on the stream without blocking.
func drain(s *Stream) []Message {
	var msgs []Message
	for {
		select {
		case msg := <-s.session.messages:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func types(msgs []Message) []MessageType {
	result := make([]MessageType, len(msgs))
	for i, m := range msgs {
		result[i] = m.Type
	}
	return result
}

type household struct {
	id      uuid.UUID
	a, b    uuid.UUID
	streamA *Stream
	streamB *Stream
}

func newHousehold(n *Notifier) *household {
	h := &household{id: testutil.NewID(), a: testutil.NewID(), b: testutil.NewID()}
	h.streamA = n.Subscribe(h.a, &h.id)
	h.streamB = n.Subscribe(h.b, &h.id)
	return h
}

func TestSendToHousehold_ExcludesActor(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)

	n.SendToHousehold(context.Background(), h.id, Message{Type: MessagePartnerMissionCompleted}, &h.b)

	assert.Len(t, drain(h.streamA), 1)
	assert.Empty(t, drain(h.streamB))
}

func TestSendToHousehold_NoExclude(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)

	n.SendToHousehold(context.Background(), h.id, Message{Type: MessageMissionCreated}, nil)

	assert.Len(t, drain(h.streamA), 1)
	assert.Len(t, drain(h.streamB), 1)
}

func TestSendToUser_NotConnectedIsNoop(t *testing.T) {
	n := newTestNotifier(t, Options{})

	assert.NotPanics(t, func() {
		n.SendToUser(context.Background(), testutil.NewID(), Message{Type: MessageBadgeEarned})
	})
}

func TestSubscribe_ReplacesPriorStream(t *testing.T) {
	n := newTestNotifier(t, Options{})
	user := testutil.NewID()
	first := n.Subscribe(user, nil)
	second := n.Subscribe(user, nil)

	select {
	case <-first.Session().Done():
	default:
		t.Fatal("prior session left open")
	}

	n.SendToUser(context.Background(), user, Message{Type: MessageMissionUpdated})
	assert.Empty(t, drain(first))
	assert.Len(t, drain(second), 1)

	first.Close()
	assert.Same(t, second.Session(), n.registry.User(user))
}

func TestUnsubscribe_ClosesStreamAndLeavesHousehold(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)

	n.Unsubscribe(h.a)

	_, err := h.streamA.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	sessions := n.registry.Household(h.id)
	require.Len(t, sessions, 1)
	assert.Equal(t, h.b, sessions[0].UserID)
}

func TestDeliver_FullBufferDrops(t *testing.T) {
	n := newTestNotifier(t, Options{Buffer: 1})
	user := testutil.NewID()
	stream := n.Subscribe(user, nil)

	n.SendToUser(context.Background(), user, Message{Type: MessageMissionUpdated})
	n.SendToUser(context.Background(), user, Message{Type: MessageMissionUpdated})

	assert.Len(t, drain(stream), 1)
}

// -- stream --

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) send(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) snapshot() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

func TestStreamRun_InterleavesHeartbeats(t *testing.T) {
	n := newTestNotifier(t, Options{Heartbeat: 10 * time.Millisecond})
	user := testutil.NewID()
	stream := n.Subscribe(user, nil)
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx, rec.send) }()

	n.SendToUser(ctx, user, Message{Type: MessageMissionUpdated})
	assert.Eventually(t, func() bool {
		var domain, beats int
		for _, m := range rec.snapshot() {
			if m.Type == MessageHeartbeat {
				beats++
			} else {
				domain++
			}
		}
		return domain == 1 && beats >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Nil(t, n.registry.User(user))
}

func TestStreamRun_EndsOnUnsubscribe(t *testing.T) {
	n := newTestNotifier(t, Options{})
	user := testutil.NewID()
	stream := n.Subscribe(user, nil)

	done := make(chan error, 1)
	go func() { done <- stream.Run(context.Background(), (&recorder{}).send) }()
	n.Unsubscribe(user)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stream did not end")
	}
}

// -- event mapping --

func householdMission(h *household, owner uuid.UUID) models.Mission {
	return models.Mission{
		ID:                testutil.NewID(),
		UserID:            owner,
		HouseholdID:       &h.id,
		Name:              "Holiday",
		GoalAmount:        decimal.RequireFromString("1000"),
		AccumulatedAmount: decimal.RequireFromString("250"),
		Status:            models.MissionStatusInProgress,
	}
}

func TestHandle_MissionCompletedNotifiesActorAndPartner(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)
	m := householdMission(h, h.b)

	require.NoError(t, n.Handle(context.Background(), events.MissionCompleted{Meta: events.Meta{ActorID: h.b}, Mission: m}))

	assert.Equal(t, []MessageType{MessagePartnerMissionCompleted}, types(drain(h.streamA)))
	assert.Equal(t, []MessageType{MessageMissionCompleted}, types(drain(h.streamB)))
}

func TestHandle_MissionCreatedTagsPartner(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)
	m := householdMission(h, h.a)

	require.NoError(t, n.Handle(context.Background(), events.MissionCreated{Meta: events.Meta{ActorID: h.a}, Mission: m}))

	assert.Equal(t, []MessageType{MessageMissionCreated}, types(drain(h.streamA)))
	partner := drain(h.streamB)
	require.Len(t, partner, 1)
	assert.Equal(t, MessagePartnerMissionCreated, partner[0].Type)
	assert.Equal(t, &h.a, partner[0].ActorID)
}

func TestHandle_MissionUpdatedOnlyActor(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)

	require.NoError(t, n.Handle(context.Background(), events.MissionUpdated{Meta: events.Meta{ActorID: h.a}, Mission: householdMission(h, h.a)}))

	assert.Len(t, drain(h.streamA), 1)
	assert.Empty(t, drain(h.streamB))
}

func TestHandle_StatusChangedCarriesPreviousStatus(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)

	require.NoError(t, n.Handle(context.Background(), events.MissionStatusChanged{
		Meta:    events.Meta{ActorID: h.a},
		Mission: householdMission(h, h.a),
		From:    models.MissionStatusPending,
		To:      models.MissionStatusInProgress,
	}))

	msgs := drain(h.streamB)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessagePartnerMissionStatusChanged, msgs[0].Type)
	assert.Equal(t, "pending", msgs[0].Mission.PreviousStatus)
	assert.Equal(t, "in_progress", msgs[0].Mission.Status)
}

func TestHandle_TransactionsLinkedReportsProgress(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)

	require.NoError(t, n.Handle(context.Background(), events.TransactionsLinked{Meta: events.Meta{ActorID: h.a}, Mission: householdMission(h, h.a)}))

	msgs := drain(h.streamA)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageMissionProgress, msgs[0].Type)
	assert.True(t, msgs[0].Mission.Progress.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, []MessageType{MessagePartnerMissionProgress}, types(drain(h.streamB)))
}

func TestHandle_BadgeEarnedOnlyAwardee(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)

	require.NoError(t, n.Handle(context.Background(), events.BadgeEarned{
		Meta:      events.Meta{ActorID: h.a},
		Badge:     models.Badge{ID: testutil.NewID(), Name: "First step", Type: models.BadgeTypeLifecycle},
		UserBadge: models.UserBadge{UserID: h.a, AwardedAt: time.Now()},
	}))

	msgs := drain(h.streamA)
	require.Len(t, msgs, 1)
	assert.Equal(t, "First step", msgs[0].Badge.Name)
	assert.Empty(t, drain(h.streamB))
}

func TestHandle_PersonalMissionSkipsHousehold(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)
	m := householdMission(h, h.a)
	m.HouseholdID = nil

	require.NoError(t, n.Handle(context.Background(), events.MissionCompleted{Meta: events.Meta{ActorID: h.a}, Mission: m}))

	assert.Len(t, drain(h.streamA), 1)
	assert.Empty(t, drain(h.streamB))
}

// -- broker --

type captureBroker struct {
	users      []uuid.UUID
	households []uuid.UUID
}

func (c *captureBroker) PublishUser(_ context.Context, userID uuid.UUID, _ Message) error {
	c.users = append(c.users, userID)
	return nil
}

func (c *captureBroker) PublishHousehold(_ context.Context, householdID uuid.UUID, _ Message, _ *uuid.UUID) error {
	c.households = append(c.households, householdID)
	return nil
}

func TestSend_GoesThroughBroker(t *testing.T) {
	broker := &captureBroker{}
	n := newTestNotifier(t, Options{Broker: broker})
	h := newHousehold(n)

	n.SendToUser(context.Background(), h.a, Message{Type: MessageMissionUpdated})
	n.SendToHousehold(context.Background(), h.id, Message{Type: MessageMissionCreated}, &h.a)

	assert.Equal(t, []uuid.UUID{h.a}, broker.users)
	assert.Equal(t, []uuid.UUID{h.id}, broker.households)
	assert.Empty(t, drain(h.streamA))
}

func TestRedisRelayDispatch_DeliversLocally(t *testing.T) {
	n := newTestNotifier(t, Options{})
	h := newHousehold(n)
	relay := NewRedisRelay(nil, n, testutil.Logger())

	require.NoError(t, relay.dispatch(householdChannel+h.id.String(), `{"exclude":"`+h.b.String()+`","message":{"type":"partner_mission_completed"}}`))
	require.NoError(t, relay.dispatch(userChannel+h.b.String(), `{"message":{"type":"badge_earned"}}`))

	assert.Equal(t, []MessageType{MessagePartnerMissionCompleted}, types(drain(h.streamA)))
	assert.Equal(t, []MessageType{MessageBadgeEarned}, types(drain(h.streamB)))
	assert.Error(t, relay.dispatch("missions:rt:other", `{}`))
}
