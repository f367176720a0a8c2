// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
	"github.com/carson-networks/mission-server/internal/storage/memory"
)

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// CapturePublisher records published events instead of dispatching them.
type CapturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *CapturePublisher) Publish(event events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *CapturePublisher) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}

func (c *CapturePublisher) Tags() []events.Tag {
	evts := c.Events()
	tags := make([]events.Tag, len(evts))
	for i, e := range evts {
		tags[i] = e.Tag()
	}
	return tags
}

func (c *CapturePublisher) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// Fixture seeds an in-memory storage.
type Fixture struct {
	t       *testing.T
	Storage *storage.Storage
	Store   *memory.Store
}

func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	s, store := memory.NewStorage()
	return &Fixture{t: t, Storage: s, Store: store}
}

func (f *Fixture) Category(name string) *models.Category {
	f.t.Helper()
	c := &models.Category{ID: NewID(), Name: name}
	require.NoError(f.t, f.Storage.Categories.Insert(context.Background(), c))
	return c
}

func (f *Fixture) Template(categoryID uuid.UUID, name, goal string) *models.Template {
	f.t.Helper()
	tpl := &models.Template{ID: NewID(), CategoryID: categoryID, Name: name, GoalAmount: decimal.RequireFromString(goal)}
	require.NoError(f.t, f.Storage.Templates.Insert(context.Background(), tpl))
	return tpl
}

func (f *Fixture) Family(members ...uuid.UUID) *models.FamilyGroup {
	f.t.Helper()
	fam := &models.FamilyGroup{ID: NewID(), Name: "Home", MemberIDs: members}
	require.NoError(f.t, f.Storage.Families.Insert(context.Background(), fam))
	return fam
}

// MissionOption customises a seeded mission.
type MissionOption func(*models.Mission)

func WithStatus(status models.MissionStatus) MissionOption {
	return func(m *models.Mission) { m.Status = status }
}

func WithHousehold(id uuid.UUID) MissionOption {
	return func(m *models.Mission) { m.HouseholdID = &id }
}

func WithParent(id uuid.UUID) MissionOption {
	return func(m *models.Mission) { m.ParentID = &id }
}

// WithCompletedAt marks the mission completed. Without WithCompletedBy the
// owner is recorded as the completer.
func WithCompletedAt(at time.Time) MissionOption {
	return func(m *models.Mission) {
		m.Status = models.MissionStatusCompleted
		m.CompletedAt = &at
		if m.CompletedBy == nil {
			by := m.UserID
			m.CompletedBy = &by
		}
	}
}

func WithCompletedBy(user uuid.UUID) MissionOption {
	return func(m *models.Mission) { m.CompletedBy = &user }
}

func (f *Fixture) Mission(userID, categoryID uuid.UUID, goal string, opts ...MissionOption) *models.Mission {
	f.t.Helper()
	now := time.Now().UTC()
	m := &models.Mission{
		ID:                NewID(),
		UserID:            userID,
		CategoryID:        categoryID,
		Name:              "Emergency fund",
		GoalAmount:        decimal.RequireFromString(goal),
		AccumulatedAmount: decimal.Zero,
		Status:            models.MissionStatusPending,
		StartDate:         now,
		DueDate:           now.AddDate(0, 6, 0),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, opt := range opts {
		opt(m)
	}
	require.NoError(f.t, f.Storage.Missions.Insert(context.Background(), m))
	return m
}

func (f *Fixture) Transaction(kind models.TransactionType, amount string) *models.Transaction {
	f.t.Helper()
	tx := &models.Transaction{
		ID:              NewID(),
		AccountID:       NewID(),
		Type:            kind,
		Amount:          decimal.RequireFromString(amount),
		TransactionName: kind.String(),
		TransactionDate: time.Now().UTC(),
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(f.t, f.Storage.Transactions.Insert(context.Background(), tx))
	return tx
}

func (f *Fixture) Badge(name string, badgeType models.BadgeType, condition models.ConditionType, value models.BadgeCondition) *models.Badge {
	f.t.Helper()
	b := &models.Badge{
		ID:            NewID(),
		Name:          name,
		Type:          badgeType,
		ConditionType: condition,
		Condition:     value,
		IsActive:      true,
	}
	require.NoError(f.t, f.Storage.Badges.Insert(context.Background(), b))
	return b
}

// ReloadMission reads the committed mission.
func (f *Fixture) ReloadMission(id uuid.UUID) *models.Mission {
	f.t.Helper()
	m, err := f.Storage.Missions.FindByID(context.Background(), id)
	require.NoError(f.t, err)
	return m
}
