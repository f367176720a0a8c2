package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/aggregator"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/operator/actions"
	"github.com/carson-networks/mission-server/internal/storage"
)

const defaultMissionLimit = 20

// MissionService handles mission business logic. Reads go straight to
// storage; every mutation is an action run through the processor.
type MissionService struct {
	storage    *storage.Storage
	processor  IProcessor
	machine    *mission.Machine
	aggregator *aggregator.Aggregator
	logger     *logrus.Logger
}

// NewMissionService creates a new MissionService.
func NewMissionService(store *storage.Storage, processor IProcessor, machine *mission.Machine, agg *aggregator.Aggregator, logger *logrus.Logger) *MissionService {
	return &MissionService{
		storage:    store,
		processor:  processor,
		machine:    machine,
		aggregator: agg,
		logger:     logger,
	}
}

// CreateMission creates a Pending mission owned by actor.
func (s *MissionService) CreateMission(ctx context.Context, actor uuid.UUID, input CreateMissionInput) (*models.Mission, error) {
	action := &actions.CreateMission{
		Machine:     s.machine,
		ActorID:     actor,
		CategoryID:  input.CategoryID,
		TemplateID:  input.TemplateID,
		ParentID:    input.ParentID,
		MissionName: input.Name,
		GoalAmount:  input.GoalAmount,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
	}
	if err := s.run(ctx, action, logrus.Fields{"actor": actor, "categoryID": input.CategoryID}); err != nil {
		return nil, err
	}
	return action.Result, nil
}

// UpdateMission patches mission fields. Completed missions are immutable.
func (s *MissionService) UpdateMission(ctx context.Context, actor, missionID uuid.UUID, update mission.Update) (*models.Mission, error) {
	action := &actions.UpdateMission{
		Machine:    s.machine,
		Aggregator: s.aggregator,
		ActorID:    actor,
		MissionID:  missionID,
		Update:     update,
	}
	if err := s.run(ctx, action, logrus.Fields{"actor": actor, "missionID": missionID}); err != nil {
		return nil, err
	}
	return action.Result, nil
}

// TransitionStatus moves a mission along the status machine.
func (s *MissionService) TransitionStatus(ctx context.Context, actor, missionID uuid.UUID, status models.MissionStatus) (*models.Mission, error) {
	action := &actions.TransitionStatus{
		Machine:    s.machine,
		Aggregator: s.aggregator,
		ActorID:    actor,
		MissionID:  missionID,
		Status:     status,
	}
	log := logrus.Fields{"actor": actor, "missionID": missionID, "status": status.String()}
	if err := s.run(ctx, action, log); err != nil {
		return nil, err
	}
	return action.Result, nil
}

// LinkTransactions attaches bank transactions to a mission and recomputes it.
// Either every id is linked or none is.
func (s *MissionService) LinkTransactions(ctx context.Context, actor, missionID uuid.UUID, transactionIDs []uuid.UUID) (*models.Mission, error) {
	action := &actions.LinkTransactions{
		Aggregator:     s.aggregator,
		ActorID:        actor,
		MissionID:      missionID,
		TransactionIDs: transactionIDs,
	}
	log := logrus.Fields{"actor": actor, "missionID": missionID, "count": len(transactionIDs)}
	if err := s.run(ctx, action, log); err != nil {
		return nil, err
	}
	return action.Result, nil
}

// GetMission returns a mission visible to actor, with progress and children.
func (s *MissionService) GetMission(ctx context.Context, actor, missionID uuid.UUID) (*MissionView, error) {
	m, err := s.storage.Missions.FindByID(ctx, missionID)
	if err != nil {
		return nil, notFound(err, mission.CodeMissionNotFound, "mission %s", missionID)
	}

	householdID, err := s.householdOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !visible(m, actor, householdID) {
		return nil, mission.NewError(mission.CodeMissionNotFound, "mission %s", missionID)
	}

	children, err := s.storage.Missions.List(ctx, &storage.MissionFilter{ParentID: &m.ID})
	if err != nil {
		return nil, err
	}

	return &MissionView{
		Mission:  m,
		Progress: mission.Progress(m.AccumulatedAmount, m.GoalAmount),
		Children: children,
	}, nil
}

// ListMissions returns a page of the actor's missions using cursor pagination.
// Personal missions are always included, plus every mission shared with the
// actor's household.
func (s *MissionService) ListMissions(ctx context.Context, actor uuid.UUID, filter MissionListFilter, cursor *MissionCursor) ([]*models.Mission, *MissionCursor, error) {
	limit := defaultMissionLimit
	offset := 0
	if cursor != nil {
		limit = cursor.Limit
		offset = cursor.Position
	}

	householdID, err := s.householdOf(ctx, actor)
	if err != nil {
		return nil, nil, err
	}

	storageFilter := &storage.MissionFilter{
		CategoryID: filter.CategoryID,
		Status:     filter.Status,
		VisibleTo:  &storage.Visibility{UserID: actor, HouseholdID: householdID},
		Limit:      limit + 1,
		Offset:     offset,
	}

	missions, err := s.storage.Missions.List(ctx, storageFilter)
	if err != nil {
		return nil, nil, err
	}
	if len(missions) == 0 {
		return nil, nil, nil
	}

	var nextCursor *MissionCursor
	if len(missions) > limit {
		missions = missions[:limit]
		nextCursor = &MissionCursor{
			Position: offset + limit,
			Limit:    limit,
		}
	}
	return missions, nextCursor, nil
}

// ListMissionTransactions returns the transactions linked to a visible mission.
func (s *MissionService) ListMissionTransactions(ctx context.Context, actor, missionID uuid.UUID) ([]*models.Transaction, error) {
	if _, err := s.GetMission(ctx, actor, missionID); err != nil {
		return nil, err
	}
	return s.storage.Transactions.ListByMission(ctx, missionID)
}

func (s *MissionService) run(ctx context.Context, action actions.IAction, fields logrus.Fields) error {
	log := s.logger.WithFields(fields).WithField("action", action.Name())
	log.Debug("MissionService.Process.Start")

	if err := s.processor.Process(ctx, action); err != nil {
		var domainErr *mission.Error
		if errors.As(err, &domainErr) {
			log.WithError(err).WithField("code", domainErr.Code).Info("MissionService.Process.Rejected")
			return err
		}
		log.WithError(err).Error("MissionService.Process.Error")
		return mission.Wrap(err, mission.CodeInternal, "%s failed", action.Name())
	}

	log.Info("MissionService.Process.Complete")
	return nil
}

func (s *MissionService) householdOf(ctx context.Context, actor uuid.UUID) (*uuid.UUID, error) {
	family, err := s.storage.Families.FindByMember(ctx, actor)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &family.ID, nil
}

func visible(m *models.Mission, actor uuid.UUID, householdID *uuid.UUID) bool {
	if m.UserID == actor {
		return true
	}
	return householdID != nil && m.HouseholdID != nil && *m.HouseholdID == *householdID
}

func notFound(err error, code mission.Code, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return mission.Wrap(err, code, format, args...)
	}
	return err
}
