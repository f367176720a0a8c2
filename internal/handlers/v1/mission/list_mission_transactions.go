package mission

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/models"
)

// Transaction is the API response model for a linked transaction.
type Transaction struct {
	ID              string `json:"id" doc:"Transaction UUID"`
	AccountID       string `json:"accountID" doc:"Account UUID"`
	Type            string `json:"type" enum:"deposit,withdrawal" doc:"Direction of the movement"`
	Amount          string `json:"amount" doc:"Decimal amount"`
	TransactionName string `json:"transactionName" doc:"Name of the transaction"`
	TransactionDate string `json:"transactionDate" doc:"RFC3339 transaction date"`
}

type ListMissionTransactionsInput struct {
	ActorHeader
	MissionPath
}

type ListMissionTransactionsResponseBody struct {
	Transactions []Transaction `json:"transactions" doc:"Transactions linked to the mission"`
}

type ListMissionTransactionsOutput struct {
	Body ListMissionTransactionsResponseBody
}

type missionTransactionLister interface {
	ListMissionTransactions(ctx context.Context, actor, missionID uuid.UUID) ([]*models.Transaction, error)
}

// ListMissionTransactionsHandler handles GET /v1/missions/{id}/transactions.
type ListMissionTransactionsHandler struct {
	MissionService missionTransactionLister
}

func NewListMissionTransactionsHandler(svc missionTransactionLister) *ListMissionTransactionsHandler {
	return &ListMissionTransactionsHandler{MissionService: svc}
}

func (h *ListMissionTransactionsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-mission-transactions",
		Method:      http.MethodGet,
		Path:        "/v1/missions/{id}/transactions",
		Summary:     "List linked transactions",
		Tags:        []string{"Missions"},
	}, h.handle)
}

func (h *ListMissionTransactionsHandler) handle(ctx context.Context, input *ListMissionTransactionsInput) (*ListMissionTransactionsOutput, error) {
	actor, err := input.actor()
	if err != nil {
		return nil, err
	}
	missionID, err := input.missionID()
	if err != nil {
		return nil, err
	}

	txs, err := h.MissionService.ListMissionTransactions(ctx, actor, missionID)
	if err != nil {
		return nil, serviceError(err)
	}

	out := &ListMissionTransactionsOutput{}
	out.Body.Transactions = make([]Transaction, len(txs))
	for i, tx := range txs {
		out.Body.Transactions[i] = Transaction{
			ID:              tx.ID.String(),
			AccountID:       tx.AccountID.String(),
			Type:            tx.Type.String(),
			Amount:          tx.Amount.String(),
			TransactionName: tx.TransactionName,
			TransactionDate: tx.TransactionDate.Format(time.RFC3339),
		}
	}
	return out, nil
}
