package mission

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/service"
)

// MissionPath identifies a mission in the URL.
type MissionPath struct {
	ID string `path:"id" format:"uuid" doc:"Mission UUID"`
}

func (p MissionPath) missionID() (uuid.UUID, error) {
	id, err := uuid.FromString(p.ID)
	if err != nil {
		return uuid.Nil, huma.NewError(http.StatusBadRequest, "invalid mission id", err)
	}
	return id, nil
}

type GetMissionInput struct {
	ActorHeader
	MissionPath
}

// MissionDetail is a mission with its direct children.
type MissionDetail struct {
	Mission
	Children []Mission `json:"children" doc:"Direct sub-missions"`
}

type GetMissionOutput struct {
	Body MissionDetail
}

type missionGetter interface {
	GetMission(ctx context.Context, actor, missionID uuid.UUID) (*service.MissionView, error)
}

// GetMissionHandler handles GET /v1/missions/{id}.
type GetMissionHandler struct {
	MissionService missionGetter
}

func NewGetMissionHandler(svc missionGetter) *GetMissionHandler {
	return &GetMissionHandler{MissionService: svc}
}

func (h *GetMissionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/v1/missions/{id}",
		Summary:     "Get a mission",
		Description: "Returns a mission owned by the acting user or their household, with progress and sub-missions.",
		Tags:        []string{"Missions"},
	}, h.handle)
}

func (h *GetMissionHandler) handle(ctx context.Context, input *GetMissionInput) (*GetMissionOutput, error) {
	actor, err := input.actor()
	if err != nil {
		return nil, err
	}
	missionID, err := input.missionID()
	if err != nil {
		return nil, err
	}

	view, err := h.MissionService.GetMission(ctx, actor, missionID)
	if err != nil {
		return nil, serviceError(err)
	}

	detail := MissionDetail{
		Mission:  toMission(view.Mission),
		Children: toMissions(view.Children),
	}
	detail.Progress = view.Progress.StringFixed(2)
	return &GetMissionOutput{Body: detail}, nil
}
