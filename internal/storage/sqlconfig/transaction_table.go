package sqlconfig

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

const transactionsTable = "transactions"

var transactionColumns = []string{
	"id", "account_id", "mission_id", "type", "amount",
	"transaction_name", "transaction_date", "created_at",
}

type transactionRow struct {
	ID              uuid.UUID       `db:"id"`
	AccountID       uuid.UUID       `db:"account_id"`
	MissionID       uuid.NullUUID   `db:"mission_id"`
	Type            int16           `db:"type"`
	Amount          decimal.Decimal `db:"amount"`
	TransactionName string          `db:"transaction_name"`
	TransactionDate time.Time       `db:"transaction_date"`
	CreatedAt       time.Time       `db:"created_at"`
}

type TransactionsTable struct {
	exec bob.Executor
}

var _ storage.ITransactionTable = (*TransactionsTable)(nil)

func (t *TransactionsTable) Insert(ctx context.Context, tx *models.Transaction) error {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := psql.Insert(
		im.Into(transactionsTable, transactionColumns...),
		im.Values(psql.Arg(
			tx.ID, tx.AccountID, nullID(tx.MissionID), int16(tx.Type), tx.Amount,
			tx.TransactionName, tx.TransactionDate, createdAt,
		)),
	)
	_, err := bob.Exec(ctx, t.exec, query)
	return err
}

// FindByIDs returns the rows that exist; missing ids are simply absent.
func (t *TransactionsTable) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := psql.Select(
		sm.Columns(columnExprs(transactionColumns)...),
		sm.From(transactionsTable),
		sm.Where(psql.Raw("id = ANY(?::uuid[])", pq.Array(idStrings(ids)))),
	)
	return t.all(ctx, query)
}

func (t *TransactionsTable) ListByMission(ctx context.Context, missionID uuid.UUID) ([]*models.Transaction, error) {
	query := psql.Select(
		sm.Columns(columnExprs(transactionColumns)...),
		sm.From(transactionsTable),
		sm.Where(psql.Quote("mission_id").EQ(psql.Arg(missionID))),
		sm.OrderBy(psql.Quote("transaction_date")).Asc(),
		sm.OrderBy(psql.Quote("id")).Asc(),
	)
	return t.all(ctx, query)
}

func (t *TransactionsTable) LinkToMission(ctx context.Context, ids []uuid.UUID, missionID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := psql.Update(
		um.Table(transactionsTable),
		um.SetCol("mission_id").ToArg(missionID),
		um.Where(psql.Raw("id = ANY(?::uuid[])", pq.Array(idStrings(ids)))),
		um.Where(psql.Raw("(mission_id IS NULL OR mission_id = ?)", missionID)),
	)
	result, err := bob.Exec(ctx, t.exec, query)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	// A concurrent writer that claimed a row first leaves it out of the
	// update once its transaction commits.
	if affected < int64(len(ids)) {
		return storage.ErrAlreadyLinked
	}
	return nil
}

func (t *TransactionsTable) all(ctx context.Context, query bob.Query) ([]*models.Transaction, error) {
	rows, err := bob.All(ctx, t.exec, query, scan.StructMapper[transactionRow]())
	if err != nil {
		return nil, err
	}
	result := make([]*models.Transaction, len(rows))
	for i, row := range rows {
		result[i] = &models.Transaction{
			ID:              row.ID,
			AccountID:       row.AccountID,
			MissionID:       idPtr(row.MissionID),
			Type:            models.TransactionType(row.Type),
			Amount:          row.Amount,
			TransactionName: row.TransactionName,
			TransactionDate: row.TransactionDate.UTC(),
			CreatedAt:       row.CreatedAt.UTC(),
		}
	}
	return result, nil
}

func idStrings(ids []uuid.UUID) []string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return strs
}
