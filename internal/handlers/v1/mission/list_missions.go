package mission

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/logging"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/service"
)

// ListMissionsInput filters and pages the actor's missions.
type ListMissionsInput struct {
	ActorHeader
	CategoryID string `query:"categoryID" format:"uuid" doc:"Only missions in this category"`
	Status     string `query:"status" enum:"pending,in_progress,completed,failed" doc:"Only missions in this status"`
	Position   int    `query:"position" minimum:"0" doc:"Offset of the first mission"`
	Limit      int    `query:"limit" minimum:"0" maximum:"100" doc:"Page size, 0 uses the default"`
}

// ListMissionsCursor is the position of the next page.
type ListMissionsCursor struct {
	Position int `json:"position" doc:"Offset of the next page"`
	Limit    int `json:"limit" doc:"Page size used for this cursor"`
}

type ListMissionsResponseBody struct {
	Missions   []Mission           `json:"missions" doc:"Page of missions"`
	NextCursor *ListMissionsCursor `json:"nextCursor,omitempty" doc:"Cursor of the next page, absent on the last page"`
}

type ListMissionsOutput struct {
	Body ListMissionsResponseBody
}

type missionLister interface {
	ListMissions(ctx context.Context, actor uuid.UUID, filter service.MissionListFilter, cursor *service.MissionCursor) ([]*models.Mission, *service.MissionCursor, error)
}

// ListMissionsHandler handles GET /v1/missions.
type ListMissionsHandler struct {
	MissionService missionLister
}

func NewListMissionsHandler(svc missionLister) *ListMissionsHandler {
	return &ListMissionsHandler{MissionService: svc}
}

func (h *ListMissionsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/v1/missions",
		Summary:     "List missions",
		Description: "Returns the acting user's missions, including their household's, using offset pagination.",
		Tags:        []string{"Missions"},
	}, h.handle)
}

// parseListMissionsInput builds the filter and cursor. Without a limit the
// service default applies.
func parseListMissionsInput(input *ListMissionsInput) (service.MissionListFilter, *service.MissionCursor, error) {
	var filter service.MissionListFilter

	categoryID, err := parseOptionalID(input.CategoryID, "categoryID")
	if err != nil {
		return filter, nil, err
	}
	filter.CategoryID = categoryID

	if input.Status != "" {
		status, err := models.ParseMissionStatus(input.Status)
		if err != nil {
			return filter, nil, huma.NewError(http.StatusBadRequest, "invalid status", err)
		}
		filter.Status = &status
	}

	if input.Limit == 0 {
		if input.Position == 0 {
			return filter, nil, nil
		}
		return filter, nil, huma.NewError(http.StatusBadRequest, "position requires limit")
	}
	return filter, &service.MissionCursor{Position: input.Position, Limit: input.Limit}, nil
}

func (h *ListMissionsHandler) handle(ctx context.Context, input *ListMissionsInput) (*ListMissionsOutput, error) {
	actor, err := input.actor()
	if err != nil {
		return nil, err
	}
	filter, cursor, err := parseListMissionsInput(input)
	if err != nil {
		return nil, err
	}

	missions, next, err := h.MissionService.ListMissions(ctx, actor, filter, cursor)
	if err != nil {
		return nil, serviceError(err)
	}
	logging.GetLogData(ctx).AddData("missionCount", len(missions))

	resp := ListMissionsResponseBody{Missions: toMissions(missions)}
	if next != nil {
		resp.NextCursor = &ListMissionsCursor{Position: next.Position, Limit: next.Limit}
	}
	return &ListMissionsOutput{Body: resp}, nil
}
