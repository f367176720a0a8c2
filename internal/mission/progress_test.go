package mission

import (
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/carson-networks/mission-server/internal/models"
)

func tx(kind models.TransactionType, amount string) *models.Transaction {
	return &models.Transaction{
		ID:     uuid.Must(uuid.NewV4()),
		Type:   kind,
		Amount: decimal.RequireFromString(amount),
	}
}

func TestDepositTotal_IgnoresWithdrawals(t *testing.T) {
	total := DepositTotal([]*models.Transaction{
		tx(models.TransactionTypeDeposit, "500000"),
		tx(models.TransactionTypeWithdrawal, "200000"),
	})
	assert.True(t, decimal.RequireFromString("500000").Equal(total), total.String())
}

func TestDepositTotal_ExactFixedPoint(t *testing.T) {
	total := DepositTotal([]*models.Transaction{
		tx(models.TransactionTypeDeposit, "0.10"),
		tx(models.TransactionTypeDeposit, "0.20"),
	})
	assert.True(t, decimal.RequireFromString("0.30").Equal(total))
}

func TestDepositTotal_Empty(t *testing.T) {
	assert.True(t, DepositTotal(nil).IsZero())
}

func TestProgress(t *testing.T) {
	goal := decimal.RequireFromString("1000000")
	assert.Equal(t, "50", Progress(decimal.RequireFromString("500000"), goal).String())
	assert.Equal(t, "100", Progress(decimal.RequireFromString("1500000"), goal).String())
	assert.Equal(t, "33.33", Progress(decimal.RequireFromString("1"), decimal.RequireFromString("3")).String())
	assert.True(t, Progress(decimal.RequireFromString("10"), decimal.Zero).IsZero())
}

func TestGoalReached_IsExact(t *testing.T) {
	goal := decimal.RequireFromString("1000000")
	assert.True(t, GoalReached(decimal.RequireFromString("1000000.00"), goal))
	assert.False(t, GoalReached(decimal.RequireFromString("999999.99"), goal))
}

func TestErrorCodes(t *testing.T) {
	missing := []uuid.UUID{uuid.Must(uuid.NewV4())}
	err := TransactionsNotFound(missing)

	assert.ErrorIs(t, err, ErrTransactionsNotFound)
	assert.NotErrorIs(t, err, ErrMissionNotFound)
	assert.Contains(t, err.Error(), missing[0].String())
	assert.Equal(t, CodeTransactionsNotFound, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("disk on fire")))

	wrapped := Wrap(errors.New("no rows"), CodeMissionNotFound, "mission %s", missing[0])
	assert.ErrorIs(t, wrapped, ErrMissionNotFound)
}
