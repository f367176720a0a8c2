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

type TransitionStatus struct {
	Machine    *mission.Machine
	Aggregator *aggregator.Aggregator

	ActorID   uuid.UUID
	MissionID uuid.UUID
	Status    models.MissionStatus

	Result *models.Mission
}

func (t *TransitionStatus) Name() string { return "transition_status" }

func (t *TransitionStatus) Perform(ctx context.Context, writer *storage.Writer) ([]events.Event, error) {
	m, err := loadMission(ctx, writer, t.MissionID, t.ActorID)
	if err != nil {
		return nil, err
	}

	produced, err := t.Machine.Transition(m, t.Status, t.ActorID)
	if err != nil {
		return nil, err
	}

	// A mission resumed with its goal already covered completes right away.
	if t.Status == models.MissionStatusInProgress {
		completed, err := t.Aggregator.CheckCompletion(m, t.ActorID)
		if err != nil {
			return nil, err
		}
		produced = append(produced, completed...)
	}

	if err := writer.Missions.Update(ctx, m); err != nil {
		return nil, err
	}

	t.Result = m
	return produced, nil
}
