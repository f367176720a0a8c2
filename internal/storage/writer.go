package storage

import (
	"context"
)

// Tx is the commit/rollback half of a storage transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Writer carries the tables bound to one open transaction.
type Writer struct {
	tx Tx
	Tables
}

func NewWriter(tx Tx, tables Tables) *Writer {
	return &Writer{
		tx:     tx,
		Tables: tables,
	}
}

func (w *Writer) Commit() error {
	return w.tx.Commit(context.Background())
}

func (w *Writer) Rollback() error {
	return w.tx.Rollback(context.Background())
}
