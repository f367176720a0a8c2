package mission

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
)

// Mission is the API response model for a mission.
type Mission struct {
	ID                string  `json:"id" doc:"Mission UUID"`
	UserID            string  `json:"userID" doc:"Owner UUID"`
	HouseholdID       *string `json:"householdID,omitempty" doc:"Household UUID"`
	ParentID          *string `json:"parentID,omitempty" doc:"Parent mission UUID"`
	CategoryID        string  `json:"categoryID" doc:"Category UUID"`
	TemplateID        *string `json:"templateID,omitempty" doc:"Template UUID"`
	Name              string  `json:"name" doc:"Mission name"`
	GoalAmount        string  `json:"goalAmount" doc:"Decimal goal"`
	AccumulatedAmount string  `json:"accumulatedAmount" doc:"Decimal sum of linked transactions"`
	Progress          string  `json:"progress" doc:"Percentage of goal reached, 0 to 100"`
	Status            string  `json:"status" enum:"pending,in_progress,completed,failed" doc:"Lifecycle status"`
	StartDate         string  `json:"startDate" doc:"RFC3339 start date"`
	DueDate           string  `json:"dueDate" doc:"RFC3339 due date"`
	CompletedAt       *string `json:"completedAt,omitempty" doc:"RFC3339 completion time"`
	CreatedAt         string  `json:"createdAt" doc:"RFC3339 creation time"`
	UpdatedAt         string  `json:"updatedAt" doc:"RFC3339 last update time"`
}

// ActorHeader carries the authenticated user id set by the upstream gateway.
type ActorHeader struct {
	UserID string `header:"X-User-ID" required:"true" format:"uuid" doc:"Acting user UUID"`
}

func (a ActorHeader) actor() (uuid.UUID, error) {
	id, err := uuid.FromString(a.UserID)
	if err != nil {
		return uuid.Nil, huma.NewError(http.StatusBadRequest, "invalid X-User-ID", err)
	}
	return id, nil
}

func toMission(m *models.Mission) Mission {
	out := Mission{
		ID:                m.ID.String(),
		UserID:            m.UserID.String(),
		HouseholdID:       idString(m.HouseholdID),
		ParentID:          idString(m.ParentID),
		CategoryID:        m.CategoryID.String(),
		TemplateID:        idString(m.TemplateID),
		Name:              m.Name,
		GoalAmount:        m.GoalAmount.String(),
		AccumulatedAmount: m.AccumulatedAmount.String(),
		Progress:          mission.Progress(m.AccumulatedAmount, m.GoalAmount).StringFixed(2),
		Status:            m.Status.String(),
		StartDate:         m.StartDate.Format(time.RFC3339),
		DueDate:           m.DueDate.Format(time.RFC3339),
		CreatedAt:         m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         m.UpdatedAt.Format(time.RFC3339),
	}
	if m.CompletedAt != nil {
		completed := m.CompletedAt.Format(time.RFC3339)
		out.CompletedAt = &completed
	}
	return out
}

func toMissions(missions []*models.Mission) []Mission {
	out := make([]Mission, len(missions))
	for i, m := range missions {
		out[i] = toMission(m)
	}
	return out
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseOptionalID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		return nil, huma.NewError(http.StatusBadRequest, "invalid "+field, err)
	}
	return &id, nil
}

func parseOptionalTime(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, huma.NewError(http.StatusBadRequest, "invalid "+field, err)
	}
	return &t, nil
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code mission.Code) int {
	switch code {
	case mission.CodeMissionNotFound, mission.CodeCategoryNotFound, mission.CodeTemplateNotFound,
		mission.CodeParentMissionNotFound, mission.CodeTransactionsNotFound:
		return http.StatusNotFound
	case mission.CodeInvalidTransition, mission.CodeMissionImmutable,
		mission.CodeTransactionAlreadyLinked, mission.CodeAlreadyAwarded:
		return http.StatusConflict
	case mission.CodeInvalidAmount, mission.CodeInvalidParentMission:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// serviceError converts a service error to a huma error. The body's first
// detail carries the stable code.
func serviceError(err error) error {
	code := mission.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		return huma.NewError(status, "internal error", codeDetail(code))
	}
	return huma.NewError(status, err.Error(), codeDetail(code))
}

func codeDetail(code mission.Code) *huma.ErrorDetail {
	return &huma.ErrorDetail{Location: "code", Message: string(code), Value: string(code)}
}
