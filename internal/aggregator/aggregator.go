// Package aggregator links bank transactions to missions and keeps each
// mission's accumulated amount equal to the sum of its linked deposits.
package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

type Aggregator struct {
	machine *mission.Machine
	logger  *logrus.Logger
}

func New(machine *mission.Machine, logger *logrus.Logger) *Aggregator {
	return &Aggregator{machine: machine, logger: logger}
}

// LinkTransactions attaches every id to m and recomputes it. All ids must
// resolve or nothing is linked. Ids already linked to m are accepted so a
// retried call converges to the same state.
func (a *Aggregator) LinkTransactions(ctx context.Context, tables storage.Tables, m *models.Mission, ids []uuid.UUID, actor uuid.UUID) ([]events.Event, error) {
	if m.IsCompleted() {
		return nil, mission.NewError(mission.CodeMissionImmutable, "mission %s is completed", m.ID)
	}

	ids = dedupe(ids)
	found, err := tables.Transactions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, mission.TransactionsNotFound(missing)
	}

	var toLink []uuid.UUID
	for _, tx := range found {
		switch {
		case tx.MissionID == nil:
			toLink = append(toLink, tx.ID)
		case *tx.MissionID != m.ID:
			return nil, mission.NewError(mission.CodeTransactionAlreadyLinked,
				"transaction %s is linked to mission %s", tx.ID, *tx.MissionID)
		}
	}

	if len(toLink) > 0 {
		err := tables.Transactions.LinkToMission(ctx, toLink, m.ID)
		if errors.Is(err, storage.ErrAlreadyLinked) {
			return nil, mission.NewError(mission.CodeTransactionAlreadyLinked,
				"transactions for mission %s were linked concurrently", m.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("link transactions: %w", err)
		}
	}

	statusEvents, err := a.Recompute(ctx, tables, m, actor)
	if err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"missionID":   m.ID,
		"requested":   len(ids),
		"newlyLinked": len(toLink),
		"accumulated": m.AccumulatedAmount.String(),
	}).Info("Aggregator.LinkTransactions.Complete")

	linked := events.TransactionsLinked{
		Meta:           events.Meta{ActorID: actor, OccurredAt: a.machine.Now()},
		Mission:        *m.Clone(),
		TransactionIDs: ids,
	}
	return append([]events.Event{linked}, statusEvents...), nil
}

// Recompute rebuilds m.AccumulatedAmount from scratch and persists it,
// auto-completing an InProgress mission whose goal is reached.
func (a *Aggregator) Recompute(ctx context.Context, tables storage.Tables, m *models.Mission, actor uuid.UUID) ([]events.Event, error) {
	txs, err := tables.Transactions.ListByMission(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list mission transactions: %w", err)
	}

	m.AccumulatedAmount = mission.DepositTotal(txs)
	m.UpdatedAt = a.machine.Now()

	evts, err := a.CheckCompletion(m, actor)
	if err != nil {
		return nil, err
	}

	if err := tables.Missions.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update mission: %w", err)
	}
	return evts, nil
}

// CheckCompletion transitions m to Completed when it is InProgress and its
// accumulated amount has reached the goal. It does not persist.
func (a *Aggregator) CheckCompletion(m *models.Mission, actor uuid.UUID) ([]events.Event, error) {
	if m.Status != models.MissionStatusInProgress || !mission.GoalReached(m.AccumulatedAmount, m.GoalAmount) {
		return nil, nil
	}

	evts, err := a.machine.Transition(m, models.MissionStatusCompleted, actor)
	if err != nil {
		return nil, err
	}
	a.logger.WithFields(logrus.Fields{
		"missionID": m.ID,
		"goal":      m.GoalAmount.String(),
	}).Info("Aggregator.AutoComplete")
	return evts, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func missingIDs(requested []uuid.UUID, found []*models.Transaction) []uuid.UUID {
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, tx := range found {
		present[tx.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
