// Package realtime pushes mission and badge updates to connected users and
// their household partner.
package realtime

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type MessageType string

const (
	MessageHeartbeat                   MessageType = "heartbeat"
	MessageMissionCreated              MessageType = "mission_created"
	MessagePartnerMissionCreated       MessageType = "partner_mission_created"
	MessageMissionUpdated              MessageType = "mission_updated"
	MessageMissionStatusChanged        MessageType = "mission_status_changed"
	MessagePartnerMissionStatusChanged MessageType = "partner_mission_status_changed"
	MessageMissionCompleted            MessageType = "mission_completed"
	MessagePartnerMissionCompleted     MessageType = "partner_mission_completed"
	MessageMissionProgress             MessageType = "mission_progress"
	MessagePartnerMissionProgress      MessageType = "partner_mission_progress"
	MessageBadgeEarned                 MessageType = "badge_earned"
)

// Message is one item of a subscriber's stream.
type Message struct {
	Type    MessageType     `json:"type"`
	ActorID *uuid.UUID      `json:"actorId,omitempty"`
	Mission *MissionPayload `json:"mission,omitempty"`
	Badge   *BadgePayload   `json:"badge,omitempty"`
	SentAt  time.Time       `json:"sentAt"`
}

type MissionPayload struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Status            string          `json:"status"`
	PreviousStatus    string          `json:"previousStatus,omitempty"`
	GoalAmount        decimal.Decimal `json:"goalAmount"`
	AccumulatedAmount decimal.Decimal `json:"accumulatedAmount"`
	Progress          decimal.Decimal `json:"progress"`
}

type BadgePayload struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	AwardedAt time.Time `json:"awardedAt"`
}
