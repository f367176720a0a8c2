package mission

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/models"
)

var allowedTransitions = map[models.MissionStatus][]models.MissionStatus{
	models.MissionStatusPending:    {models.MissionStatusInProgress, models.MissionStatusFailed},
	models.MissionStatusInProgress: {models.MissionStatusCompleted, models.MissionStatusFailed, models.MissionStatusPending},
	models.MissionStatusCompleted:  {},
	models.MissionStatusFailed:     {models.MissionStatusPending},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.MissionStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Machine validates and applies mission mutations in memory. It never
// persists; callers save the mission and publish the returned events after
// the write succeeds.
type Machine struct {
	now func() time.Time
}

func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{now: now}
}

func (m *Machine) Now() time.Time {
	return m.now().UTC()
}

// Transition moves mission to status. Entering Completed stamps CompletedAt
// and yields MissionStatusChanged followed by MissionCompleted.
func (m *Machine) Transition(mission *models.Mission, status models.MissionStatus, actor uuid.UUID) ([]events.Event, error) {
	from := mission.Status
	if !CanTransition(from, status) {
		return nil, NewError(CodeInvalidTransition, "cannot move mission %s from %s to %s", mission.ID, from, status)
	}

	now := m.Now()
	mission.Status = status
	mission.UpdatedAt = now
	if status == models.MissionStatusCompleted && mission.CompletedAt == nil {
		completedAt := now
		completedBy := actor
		mission.CompletedAt = &completedAt
		mission.CompletedBy = &completedBy
	}

	meta := events.Meta{ActorID: actor, OccurredAt: now}
	result := []events.Event{
		events.MissionStatusChanged{Meta: meta, Mission: *mission.Clone(), From: from, To: status},
	}
	if status == models.MissionStatusCompleted {
		result = append(result, events.MissionCompleted{Meta: meta, Mission: *mission.Clone()})
	}
	return result, nil
}

// Update is a field-level patch. Nil fields are left unchanged.
type Update struct {
	Name       *string
	GoalAmount *decimal.Decimal
	StartDate  *time.Time
	DueDate    *time.Time
}

func (u Update) IsEmpty() bool {
	return u.Name == nil && u.GoalAmount == nil && u.StartDate == nil && u.DueDate == nil
}

// Apply patches mission fields. Completed missions reject every field update.
func (m *Machine) Apply(mission *models.Mission, update Update, actor uuid.UUID) ([]events.Event, error) {
	if mission.IsCompleted() {
		return nil, NewError(CodeMissionImmutable, "mission %s is completed", mission.ID)
	}
	if update.GoalAmount != nil && !update.GoalAmount.IsPositive() {
		return nil, NewError(CodeInvalidAmount, "goal amount must be positive")
	}
	if update.IsEmpty() {
		return nil, nil
	}

	if update.Name != nil {
		mission.Name = *update.Name
	}
	if update.GoalAmount != nil {
		mission.GoalAmount = *update.GoalAmount
	}
	if update.StartDate != nil {
		mission.StartDate = *update.StartDate
	}
	if update.DueDate != nil {
		mission.DueDate = *update.DueDate
	}
	now := m.Now()
	mission.UpdatedAt = now

	return []events.Event{
		events.MissionUpdated{Meta: events.Meta{ActorID: actor, OccurredAt: now}, Mission: *mission.Clone()},
	}, nil
}

// GoalReached is the exact auto-completion comparison.
func GoalReached(accumulated, goal decimal.Decimal) bool {
	return accumulated.GreaterThanOrEqual(goal)
}
