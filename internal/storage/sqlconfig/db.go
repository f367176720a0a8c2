package sqlconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/stephenafamo/bob"

	"github.com/carson-networks/mission-server/internal/storage"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// DB is the PostgreSQL backing for storage.Storage.
type DB struct {
	sql *sql.DB
	bob bob.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{sql: conn, bob: bob.NewDB(conn)}, nil
}

func (d *DB) SQL() *sql.DB {
	return d.sql
}

func (d *DB) Close() error {
	return d.sql.Close()
}

// NewStorage returns a storage.Storage whose reads run on the pool and whose
// writers run inside a Postgres transaction.
func (d *DB) NewStorage() *storage.Storage {
	return storage.NewStorage(tablesFor(d.bob), d)
}

func (d *DB) Begin(ctx context.Context) (*storage.Writer, error) {
	tx, err := d.bob.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return storage.NewWriter(tx, tablesFor(tx)), nil
}

func tablesFor(exec bob.Executor) storage.Tables {
	return storage.Tables{
		Missions:     &MissionsTable{exec: exec},
		Transactions: &TransactionsTable{exec: exec},
		Badges:       &BadgesTable{exec: exec},
		UserBadges:   &UserBadgesTable{exec: exec},
		Families:     &FamiliesTable{exec: exec},
		Categories:   &CategoriesTable{exec: exec},
		Templates:    &TemplatesTable{exec: exec},
	}
}

// notFound maps a missing row onto storage.ErrNotFound.
func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, storage.ErrNotFound)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
