package realtime

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
)

const subscriberName = "realtime_notifier"

// Register subscribes the notifier to every domain event it turns into messages.
func (n *Notifier) Register(bus events.Subscriber) {
	bus.Subscribe(subscriberName, n.Handle,
		events.TagMissionCreated,
		events.TagMissionUpdated,
		events.TagMissionStatusChanged,
		events.TagMissionCompleted,
		events.TagTransactionsLinked,
		events.TagBadgeEarned,
	)
}

// Handle maps one event to user and household messages.
func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	actor := event.Actor()
	switch e := event.(type) {
	case events.MissionCreated:
		n.fanOut(ctx, actor, &e.Mission, MessageMissionCreated, MessagePartnerMissionCreated, e.Mission.HouseholdID, "")
	case events.MissionUpdated:
		n.SendToUser(ctx, actor, missionMessage(MessageMissionUpdated, actor, &e.Mission, ""))
	case events.MissionStatusChanged:
		n.fanOut(ctx, actor, &e.Mission, MessageMissionStatusChanged, MessagePartnerMissionStatusChanged, e.Mission.HouseholdID, e.From.String())
	case events.MissionCompleted:
		n.fanOut(ctx, actor, &e.Mission, MessageMissionCompleted, MessagePartnerMissionCompleted, e.Mission.HouseholdID, "")
	case events.TransactionsLinked:
		n.fanOut(ctx, actor, &e.Mission, MessageMissionProgress, MessagePartnerMissionProgress, e.Mission.HouseholdID, "")
	case events.BadgeEarned:
		n.SendToUser(ctx, e.UserBadge.UserID, Message{
			Type: MessageBadgeEarned,
			Badge: &BadgePayload{
				ID:        e.Badge.ID,
				Name:      e.Badge.Name,
				Type:      e.Badge.Type.String(),
				AwardedAt: e.UserBadge.AwardedAt,
			},
		})
	}
	return nil
}

// fanOut sends own to the actor and partner to the rest of the household.
func (n *Notifier) fanOut(ctx context.Context, actor uuid.UUID, m *models.Mission, own, partner MessageType, householdID *uuid.UUID, previous string) {
	n.SendToUser(ctx, actor, missionMessage(own, actor, m, previous))
	if householdID != nil {
		n.SendToHousehold(ctx, *householdID, missionMessage(partner, actor, m, previous), &actor)
	}
}

func missionMessage(kind MessageType, actor uuid.UUID, m *models.Mission, previous string) Message {
	return Message{
		Type:    kind,
		ActorID: &actor,
		Mission: &MissionPayload{
			ID:                m.ID,
			Name:              m.Name,
			Status:            m.Status.String(),
			PreviousStatus:    previous,
			GoalAmount:        m.GoalAmount,
			AccumulatedAmount: m.AccumulatedAmount,
			Progress:          mission.Progress(m.AccumulatedAmount, m.GoalAmount),
		},
	}
}
