package actions

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

// IAction is one mutation run inside a single storage transaction. The
// returned events are published by the operator after the commit.
type IAction interface {
	Name() string
	Perform(ctx context.Context, writer *storage.Writer) ([]events.Event, error)
}

// notFound translates storage.ErrNotFound into the given domain error.
func notFound(err error, code mission.Code, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return mission.Wrap(err, code, format, args...)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// loadMission locks the mission and checks the actor may act on it: the
// owner, or any member of the mission's household. Others see not-found.
func loadMission(ctx context.Context, writer *storage.Writer, id, actor uuid.UUID) (*models.Mission, error) {
	m, err := writer.Missions.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, mission.CodeMissionNotFound, "mission %s", id)
	}
	if m.UserID == actor {
		return m, nil
	}
	if m.HouseholdID != nil {
		family, err := writer.Families.FindByID(ctx, *m.HouseholdID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if family != nil && family.HasMember(actor) {
			return m, nil
		}
	}
	return nil, mission.NewError(mission.CodeMissionNotFound, "mission %s", id)
}
