package service

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/mission-server/internal/models"
)

// CreateMissionInput describes a new mission. TemplateID, when set, supplies
// Name and GoalAmount if those are omitted.
type CreateMissionInput struct {
	CategoryID uuid.UUID
	TemplateID *uuid.UUID
	ParentID   *uuid.UUID
	Name       string
	GoalAmount *decimal.Decimal
	StartDate  *time.Time
	DueDate    time.Time
}

// MissionView is a mission with its derived progress and direct children.
type MissionView struct {
	*models.Mission
	Progress decimal.Decimal
	Children []*models.Mission
}

// MissionCursor identifies a position in a paginated result set.
type MissionCursor struct {
	Position int
	Limit    int
}

// MissionListFilter narrows ListMissions. The actor's own and household
// missions are always the outer scope.
type MissionListFilter struct {
	CategoryID *uuid.UUID
	Status     *models.MissionStatus
}
