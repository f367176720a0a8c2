package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned (optionally wrapped) by every table when a row is absent.
var ErrNotFound = errors.New("not found")

// ErrAlreadyLinked is returned by ITransactionTable.LinkToMission when a
// transaction belongs to a different mission.
var ErrAlreadyLinked = errors.New("already linked")

// Tables bundles one implementation of every repository contract.
type Tables struct {
	Missions     IMissionTable
	Transactions ITransactionTable
	Badges       IBadgeTable
	UserBadges   IUserBadgeTable
	Families     IFamilyTable
	Categories   ICategoryTable
	Templates    ITemplateTable
}

// Beginner opens a transaction scoped Writer.
type Beginner interface {
	Begin(ctx context.Context) (*Writer, error)
}

// Storage exposes non-transactional tables for reads and single-statement
// writes, and opens Writers for multi-statement mutations.
type Storage struct {
	Tables
	beginner Beginner
}

func NewStorage(tables Tables, beginner Beginner) *Storage {
	return &Storage{
		Tables:   tables,
		beginner: beginner,
	}
}

// Write begins a transaction. The caller must Commit or Rollback the Writer.
func (s *Storage) Write(ctx context.Context) (*Writer, error) {
	if s.beginner == nil {
		return nil, errors.New("storage: no transaction support configured")
	}
	return s.beginner.Begin(ctx)
}
