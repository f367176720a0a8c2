package actions

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/aggregator"
	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

type LinkTransactions struct {
	Aggregator *aggregator.Aggregator

	ActorID        uuid.UUID
	MissionID      uuid.UUID
	TransactionIDs []uuid.UUID

	Result *models.Mission
}

func (l *LinkTransactions) Name() string { return "link_transactions" }

func (l *LinkTransactions) Perform(ctx context.Context, writer *storage.Writer) ([]events.Event, error) {
	m, err := loadMission(ctx, writer, l.MissionID, l.ActorID)
	if err != nil {
		return nil, err
	}

	produced, err := l.Aggregator.LinkTransactions(ctx, writer.Tables, m, l.TransactionIDs, l.ActorID)
	if err != nil {
		return nil, err
	}

	l.Result = m
	return produced, nil
}
