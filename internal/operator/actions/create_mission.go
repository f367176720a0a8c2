package actions

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

type CreateMission struct {
	Machine *mission.Machine

	ActorID     uuid.UUID
	CategoryID  uuid.UUID
	TemplateID  *uuid.UUID
	ParentID    *uuid.UUID
	MissionName string
	GoalAmount  *decimal.Decimal
	StartDate   *time.Time
	DueDate     time.Time

	Result *models.Mission
}

func (c *CreateMission) Name() string { return "create_mission" }

func (c *CreateMission) Perform(ctx context.Context, writer *storage.Writer) ([]events.Event, error) {
	if _, err := writer.Categories.FindByID(ctx, c.CategoryID); err != nil {
		return nil, notFound(err, mission.CodeCategoryNotFound, "category %s", c.CategoryID)
	}

	name := c.MissionName
	var goal decimal.Decimal
	if c.GoalAmount != nil {
		goal = *c.GoalAmount
	}

	if c.TemplateID != nil {
		tpl, err := writer.Templates.FindByID(ctx, *c.TemplateID)
		if err != nil {
			return nil, notFound(err, mission.CodeTemplateNotFound, "template %s", *c.TemplateID)
		}
		if tpl.CategoryID != c.CategoryID {
			return nil, mission.NewError(mission.CodeTemplateNotFound,
				"template %s does not belong to category %s", tpl.ID, c.CategoryID)
		}
		if name == "" {
			name = tpl.Name
		}
		if c.GoalAmount == nil {
			goal = tpl.GoalAmount
		}
	}

	if !goal.IsPositive() {
		return nil, mission.NewError(mission.CodeInvalidAmount, "goal amount must be positive, got %s", goal)
	}

	var householdID *uuid.UUID
	family, err := writer.Families.FindByMember(ctx, c.ActorID)
	switch {
	case err == nil:
		householdID = &family.ID
	case !isNotFound(err):
		return nil, err
	}

	if c.ParentID != nil {
		parent, err := writer.Missions.FindByIDForUpdate(ctx, *c.ParentID)
		if err != nil {
			return nil, notFound(err, mission.CodeParentMissionNotFound, "parent mission %s", *c.ParentID)
		}
		if err := validateParent(parent, c.ActorID, householdID); err != nil {
			return nil, err
		}
	}

	now := c.Machine.Now()
	start := now
	if c.StartDate != nil {
		start = c.StartDate.UTC()
	}

	m := &models.Mission{
		ID:                uuid.Must(uuid.NewV4()),
		UserID:            c.ActorID,
		HouseholdID:       householdID,
		ParentID:          c.ParentID,
		CategoryID:        c.CategoryID,
		TemplateID:        c.TemplateID,
		Name:              name,
		GoalAmount:        goal,
		AccumulatedAmount: decimal.Zero,
		Status:            models.MissionStatusPending,
		StartDate:         start,
		DueDate:           c.DueDate.UTC(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := writer.Missions.Insert(ctx, m); err != nil {
		return nil, err
	}

	c.Result = m
	return []events.Event{events.MissionCreated{
		Meta:    events.Meta{ActorID: c.ActorID, OccurredAt: now},
		Mission: *m.Clone(),
	}}, nil
}

// validateParent keeps the tree two levels deep and within one owner scope.
func validateParent(parent *models.Mission, actor uuid.UUID, householdID *uuid.UUID) error {
	if parent.ParentID != nil {
		return mission.NewError(mission.CodeInvalidParentMission,
			"mission %s is itself a sub-mission", parent.ID)
	}
	if parent.HouseholdID != nil {
		if householdID == nil || *parent.HouseholdID != *householdID {
			return mission.NewError(mission.CodeInvalidParentMission,
				"mission %s belongs to another household", parent.ID)
		}
		return nil
	}
	if parent.UserID != actor {
		return mission.NewError(mission.CodeInvalidParentMission,
			"mission %s belongs to another user", parent.ID)
	}
	return nil
}
