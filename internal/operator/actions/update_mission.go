package actions

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/aggregator"
	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

type UpdateMission struct {
	Machine    *mission.Machine
	Aggregator *aggregator.Aggregator

	ActorID   uuid.UUID
	MissionID uuid.UUID
	Update    mission.Update

	Result *models.Mission
}

func (u *UpdateMission) Name() string { return "update_mission" }

func (u *UpdateMission) Perform(ctx context.Context, writer *storage.Writer) ([]events.Event, error) {
	m, err := loadMission(ctx, writer, u.MissionID, u.ActorID)
	if err != nil {
		return nil, err
	}

	produced, err := u.Machine.Apply(m, u.Update, u.ActorID)
	if err != nil {
		return nil, err
	}

	if u.Update.GoalAmount != nil {
		completed, err := u.Aggregator.CheckCompletion(m, u.ActorID)
		if err != nil {
			return nil, err
		}
		produced = append(produced, completed...)
	}

	if len(produced) > 0 {
		if err := writer.Missions.Update(ctx, m); err != nil {
			return nil, err
		}
	}

	u.Result = m
	return produced, nil
}
