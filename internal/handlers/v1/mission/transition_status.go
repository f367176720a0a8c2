package mission

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/logging"
	"github.com/carson-networks/mission-server/internal/models"
)

type TransitionStatusBody struct {
	Status string `json:"status" enum:"pending,in_progress,completed,failed" doc:"Target status"`
}

type TransitionStatusInput struct {
	ActorHeader
	MissionPath
	Body TransitionStatusBody
}

type TransitionStatusOutput struct {
	Body Mission
}

type statusTransitioner interface {
	TransitionStatus(ctx context.Context, actor, missionID uuid.UUID, status models.MissionStatus) (*models.Mission, error)
}

// TransitionStatusHandler handles POST /v1/missions/{id}/status.
type TransitionStatusHandler struct {
	MissionService statusTransitioner
}

func NewTransitionStatusHandler(svc statusTransitioner) *TransitionStatusHandler {
	return &TransitionStatusHandler{MissionService: svc}
}

func (h *TransitionStatusHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "transition-mission-status",
		Method:      http.MethodPost,
		Path:        "/v1/missions/{id}/status",
		Summary:     "Change mission status",
		Description: "Moves a mission along its lifecycle. Completed missions cannot leave the completed state.",
		Tags:        []string{"Missions"},
	}, h.handle)
}

func (h *TransitionStatusHandler) handle(ctx context.Context, input *TransitionStatusInput) (*TransitionStatusOutput, error) {
	actor, err := input.actor()
	if err != nil {
		return nil, err
	}
	missionID, err := input.missionID()
	if err != nil {
		return nil, err
	}
	status, err := models.ParseMissionStatus(input.Body.Status)
	if err != nil {
		return nil, huma.NewError(http.StatusBadRequest, "invalid status", err)
	}

	logging.GetLogData(ctx).AddData("targetStatus", status.String())
	m, err := h.MissionService.TransitionStatus(ctx, actor, missionID, status)
	if err != nil {
		return nil, serviceError(err)
	}
	return &TransitionStatusOutput{Body: toMission(m)}, nil
}
