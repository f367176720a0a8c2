package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/aggregator"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/operator/actions"
	"github.com/carson-networks/mission-server/internal/storage"
)

// IProcessor runs a write action in its own storage transaction.
type IProcessor interface {
	Process(ctx context.Context, action actions.IAction) error
}

// Service holds all business logic services.
type Service struct {
	Mission *MissionService
}

// NewService creates a new Service over the given storage and write path.
func NewService(store *storage.Storage, processor IProcessor, machine *mission.Machine, logger *logrus.Logger) *Service {
	return &Service{
		Mission: NewMissionService(store, processor, machine, aggregator.New(machine, logger), logger),
	}
}
