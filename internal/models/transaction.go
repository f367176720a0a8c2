package models

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a bank movement.
type TransactionType int8

const (
	TransactionTypeDeposit TransactionType = iota
	TransactionTypeWithdrawal
)

func (t TransactionType) String() string {
	if t == TransactionTypeWithdrawal {
		return "withdrawal"
	}
	return "deposit"
}

// Transaction is an immutable bank movement produced by the finance sync.
// Only MissionID changes after creation.
type Transaction struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	MissionID       *uuid.UUID
	Type            TransactionType
	Amount          decimal.Decimal
	TransactionName string
	TransactionDate time.Time
	CreatedAt       time.Time
}
