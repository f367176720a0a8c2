package mission

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/mission-server/internal/logging"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/service"
)

// CreateMissionBody is the request body for creating a mission.
type CreateMissionBody struct {
	CategoryID      string `json:"categoryID" format:"uuid" doc:"Category UUID"`
	TemplateID      string `json:"templateID,omitempty" required:"false" format:"uuid" doc:"Template UUID supplying default name and goal"`
	ParentMissionID string `json:"parentMissionID,omitempty" required:"false" format:"uuid" doc:"Top-level mission this one is nested under"`
	Name            string `json:"name,omitempty" required:"false" maxLength:"255" doc:"Mission name, defaults to the template name"`
	GoalAmount      string `json:"goalAmount,omitempty" required:"false" doc:"Decimal goal, defaults to the template goal"`
	StartDate       string `json:"startDate,omitempty" required:"false" format:"date-time" doc:"RFC3339 start date, defaults to now"`
	DueDate         string `json:"dueDate" format:"date-time" doc:"RFC3339 due date"`
}

// CreateMissionInput is the Huma input for creating a mission.
type CreateMissionInput struct {
	ActorHeader
	Body CreateMissionBody
}

// CreateMissionOutput is the Huma output for creating a mission.
type CreateMissionOutput struct {
	Body Mission
}

type missionCreator interface {
	CreateMission(ctx context.Context, actor uuid.UUID, input service.CreateMissionInput) (*models.Mission, error)
}

// CreateMissionHandler handles POST /v1/missions.
type CreateMissionHandler struct {
	MissionService missionCreator
}

func NewCreateMissionHandler(svc missionCreator) *CreateMissionHandler {
	return &CreateMissionHandler{MissionService: svc}
}

// Register registers the create mission endpoint with the Huma API.
func (h *CreateMissionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/v1/missions",
		Summary:       "Create a mission",
		Description:   "Creates a pending mission for the acting user, scoped to their household when they have one.",
		Tags:          []string{"Missions"},
		DefaultStatus: http.StatusCreated,
	}, h.handle)
}

// parseCreateMissionInput converts the request into service input.
func parseCreateMissionInput(input *CreateMissionInput) (uuid.UUID, service.CreateMissionInput, error) {
	var out service.CreateMissionInput

	actor, err := input.actor()
	if err != nil {
		return uuid.Nil, out, err
	}

	out.CategoryID, err = uuid.FromString(input.Body.CategoryID)
	if err != nil {
		return uuid.Nil, out, huma.NewError(http.StatusBadRequest, "invalid categoryID", err)
	}
	if out.TemplateID, err = parseOptionalID(input.Body.TemplateID, "templateID"); err != nil {
		return uuid.Nil, out, err
	}
	if out.ParentID, err = parseOptionalID(input.Body.ParentMissionID, "parentMissionID"); err != nil {
		return uuid.Nil, out, err
	}
	if out.StartDate, err = parseOptionalTime(input.Body.StartDate, "startDate"); err != nil {
		return uuid.Nil, out, err
	}

	out.DueDate, err = time.Parse(time.RFC3339, input.Body.DueDate)
	if err != nil {
		return uuid.Nil, out, huma.NewError(http.StatusBadRequest, "invalid dueDate", err)
	}

	if input.Body.GoalAmount != "" {
		goal, err := decimal.NewFromString(input.Body.GoalAmount)
		if err != nil {
			return uuid.Nil, out, huma.NewError(http.StatusBadRequest, "invalid goalAmount", err)
		}
		out.GoalAmount = &goal
	}
	out.Name = input.Body.Name

	return actor, out, nil
}

func (h *CreateMissionHandler) handle(ctx context.Context, input *CreateMissionInput) (*CreateMissionOutput, error) {
	actor, svcInput, err := parseCreateMissionInput(input)
	if err != nil {
		return nil, err
	}

	logData := logging.GetLogData(ctx)
	stopTimer := logData.AddTiming("createMissionMs")
	m, err := h.MissionService.CreateMission(ctx, actor, svcInput)
	stopTimer()
	if err != nil {
		return nil, serviceError(err)
	}
	logData.AddData("missionID", m.ID.String())

	return &CreateMissionOutput{Body: toMission(m)}, nil
}
