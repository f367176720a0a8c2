package mission

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/logging"
	"github.com/carson-networks/mission-server/internal/models"
)

type LinkTransactionsBody struct {
	TransactionIDs []string `json:"transactionIDs" minItems:"1" maxItems:"500" doc:"Transaction UUIDs to link"`
}

type LinkTransactionsInput struct {
	ActorHeader
	MissionPath
	Body LinkTransactionsBody
}

type LinkTransactionsOutput struct {
	Body Mission
}

type transactionLinker interface {
	LinkTransactions(ctx context.Context, actor, missionID uuid.UUID, transactionIDs []uuid.UUID) (*models.Mission, error)
}

// LinkTransactionsHandler handles POST /v1/missions/{id}/transactions.
type LinkTransactionsHandler struct {
	MissionService transactionLinker
}

func NewLinkTransactionsHandler(svc transactionLinker) *LinkTransactionsHandler {
	return &LinkTransactionsHandler{MissionService: svc}
}

func (h *LinkTransactionsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "link-mission-transactions",
		Method:      http.MethodPost,
		Path:        "/v1/missions/{id}/transactions",
		Summary:     "Link transactions",
		Description: "Links bank transactions to a mission and recomputes its progress. Either all ids are linked or none.",
		Tags:        []string{"Missions"},
	}, h.handle)
}

func parseTransactionIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.FromString(s)
		if err != nil {
			return nil, huma.NewError(http.StatusBadRequest, "invalid transaction id "+s, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func (h *LinkTransactionsHandler) handle(ctx context.Context, input *LinkTransactionsInput) (*LinkTransactionsOutput, error) {
	actor, err := input.actor()
	if err != nil {
		return nil, err
	}
	missionID, err := input.missionID()
	if err != nil {
		return nil, err
	}
	ids, err := parseTransactionIDs(input.Body.TransactionIDs)
	if err != nil {
		return nil, err
	}

	logData := logging.GetLogData(ctx)
	logData.AddData("transactionCount", len(ids))
	stopTimer := logData.AddTiming("linkTransactionsMs")
	m, err := h.MissionService.LinkTransactions(ctx, actor, missionID, ids)
	stopTimer()
	if err != nil {
		return nil, serviceError(err)
	}
	return &LinkTransactionsOutput{Body: toMission(m)}, nil
}
