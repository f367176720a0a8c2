package mission

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/mission-server/internal/service"
)

// MissionService is everything the mission endpoints need.
type MissionService interface {
	missionCreator
	missionGetter
	missionUpdater
	statusTransitioner
	transactionLinker
	missionLister
	missionTransactionLister
}

var _ MissionService = (*service.MissionService)(nil)

// Register registers every mission endpoint.
func Register(api huma.API, svc MissionService) {
	NewCreateMissionHandler(svc).Register(api)
	NewGetMissionHandler(svc).Register(api)
	NewUpdateMissionHandler(svc).Register(api)
	NewTransitionStatusHandler(svc).Register(api)
	NewLinkTransactionsHandler(svc).Register(api)
	NewListMissionsHandler(svc).Register(api)
	NewListMissionTransactionsHandler(svc).Register(api)
}
