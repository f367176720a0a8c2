package events

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/models"
)

// Tag identifies an event variant on the bus.
type Tag string

const (
	TagMissionCreated       Tag = "mission.created"
	TagMissionUpdated       Tag = "mission.updated"
	TagMissionStatusChanged Tag = "mission.status_changed"
	TagMissionCompleted     Tag = "mission.completed"
	TagTransactionsLinked   Tag = "transactions.linked"
	TagBadgeEarned          Tag = "badge.earned"
)

// AllTags lists every tag, in declaration order.
var AllTags = []Tag{
	TagMissionCreated,
	TagMissionUpdated,
	TagMissionStatusChanged,
	TagMissionCompleted,
	TagTransactionsLinked,
	TagBadgeEarned,
}

// Event is a transient domain event. Implementations carry an entity
// snapshot and the acting user.
type Event interface {
	Tag() Tag
	Actor() uuid.UUID
}

// Meta is embedded by every event.
type Meta struct {
	ActorID    uuid.UUID
	OccurredAt time.Time
}

func (m Meta) Actor() uuid.UUID { return m.ActorID }

type MissionCreated struct {
	Meta
	Mission models.Mission
}

func (MissionCreated) Tag() Tag { return TagMissionCreated }

type MissionUpdated struct {
	Meta
	Mission models.Mission
}

func (MissionUpdated) Tag() Tag { return TagMissionUpdated }

type MissionStatusChanged struct {
	Meta
	Mission models.Mission
	From    models.MissionStatus
	To      models.MissionStatus
}

func (MissionStatusChanged) Tag() Tag { return TagMissionStatusChanged }

type MissionCompleted struct {
	Meta
	Mission models.Mission
}

func (MissionCompleted) Tag() Tag { return TagMissionCompleted }

type TransactionsLinked struct {
	Meta
	Mission        models.Mission
	TransactionIDs []uuid.UUID
}

func (TransactionsLinked) Tag() Tag { return TagTransactionsLinked }

type BadgeEarned struct {
	Meta
	Badge     models.Badge
	UserBadge models.UserBadge
}

func (BadgeEarned) Tag() Tag { return TagBadgeEarned }

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(event Event)
}

// Subscriber is the registration side of the bus.
type Subscriber interface {
	Subscribe(name string, handler Handler, tags ...Tag)
}
