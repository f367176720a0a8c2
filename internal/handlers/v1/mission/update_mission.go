package mission

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
)

// UpdateMissionBody carries the fields to patch. Omitted fields are unchanged.
type UpdateMissionBody struct {
	Name       *string `json:"name,omitempty" required:"false" minLength:"1" maxLength:"255" doc:"New mission name"`
	GoalAmount *string `json:"goalAmount,omitempty" required:"false" doc:"New decimal goal"`
	StartDate  *string `json:"startDate,omitempty" required:"false" format:"date-time" doc:"New RFC3339 start date"`
	DueDate    *string `json:"dueDate,omitempty" required:"false" format:"date-time" doc:"New RFC3339 due date"`
}

type UpdateMissionInput struct {
	ActorHeader
	MissionPath
	Body UpdateMissionBody
}

type UpdateMissionOutput struct {
	Body Mission
}

type missionUpdater interface {
	UpdateMission(ctx context.Context, actor, missionID uuid.UUID, update mission.Update) (*models.Mission, error)
}

// UpdateMissionHandler handles PATCH /v1/missions/{id}.
type UpdateMissionHandler struct {
	MissionService missionUpdater
}

func NewUpdateMissionHandler(svc missionUpdater) *UpdateMissionHandler {
	return &UpdateMissionHandler{MissionService: svc}
}

func (h *UpdateMissionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "update-mission",
		Method:      http.MethodPatch,
		Path:        "/v1/missions/{id}",
		Summary:     "Update a mission",
		Description: "Patches name, goal or dates of a mission that is not completed. Lowering the goal may complete it.",
		Tags:        []string{"Missions"},
	}, h.handle)
}

func parseUpdateMissionBody(body UpdateMissionBody) (mission.Update, error) {
	update := mission.Update{Name: body.Name}

	if body.GoalAmount != nil {
		goal, err := decimal.NewFromString(*body.GoalAmount)
		if err != nil {
			return update, huma.NewError(http.StatusBadRequest, "invalid goalAmount", err)
		}
		update.GoalAmount = &goal
	}

	var err error
	if body.StartDate != nil {
		if update.StartDate, err = parseOptionalTime(*body.StartDate, "startDate"); err != nil {
			return update, err
		}
	}
	if body.DueDate != nil {
		if update.DueDate, err = parseOptionalTime(*body.DueDate, "dueDate"); err != nil {
			return update, err
		}
	}
	return update, nil
}

func (h *UpdateMissionHandler) handle(ctx context.Context, input *UpdateMissionInput) (*UpdateMissionOutput, error) {
	actor, err := input.actor()
	if err != nil {
		return nil, err
	}
	missionID, err := input.missionID()
	if err != nil {
		return nil, err
	}
	update, err := parseUpdateMissionBody(input.Body)
	if err != nil {
		return nil, err
	}

	m, err := h.MissionService.UpdateMission(ctx, actor, missionID, update)
	if err != nil {
		return nil, serviceError(err)
	}
	return &UpdateMissionOutput{Body: toMission(m)}, nil
}
