package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

func newMission(userID uuid.UUID, created time.Time) *models.Mission {
	return &models.Mission{
		ID:         newID(),
		UserID:     userID,
		CategoryID: newID(),
		Name:       "Car",
		GoalAmount: decimal.NewFromInt(100),
		Status:     models.MissionStatusPending,
		StartDate:  created,
		DueDate:    created.AddDate(0, 1, 0),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestWriter_RollbackDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	m := newMission(newID(), time.Now())

	w, err := s.Write(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Missions.Insert(ctx, m))

	_, err = s.Missions.FindByID(ctx, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "uncommitted insert must not be visible")

	require.NoError(t, w.Rollback())
	_, err = s.Missions.FindByID(ctx, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWriter_CommitPublishesChanges(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	m := newMission(newID(), time.Now())

	w, err := s.Write(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Missions.Insert(ctx, m))
	require.NoError(t, w.Commit())

	got, err := s.Missions.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)

	assert.Error(t, w.Commit(), "second commit")
	assert.NoError(t, w.Rollback(), "rollback after commit is a no-op")
}

func TestFindByID_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	m := newMission(newID(), time.Now())
	require.NoError(t, s.Missions.Insert(ctx, m))

	got, err := s.Missions.FindByID(ctx, m.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.Missions.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Car", again.Name)
}

func TestWriters_Serialise(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	m := newMission(newID(), time.Now())
	require.NoError(t, s.Missions.Insert(ctx, m))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := s.Write(ctx)
			if !assert.NoError(t, err) {
				return
			}
			cur, err := w.Missions.FindByIDForUpdate(ctx, m.ID)
			if !assert.NoError(t, err) {
				_ = w.Rollback()
				return
			}
			cur.AccumulatedAmount = cur.AccumulatedAmount.Add(decimal.NewFromInt(1))
			assert.NoError(t, w.Missions.Update(ctx, cur))
			assert.NoError(t, w.Commit())
		}()
	}
	wg.Wait()

	got, err := s.Missions.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(got.AccumulatedAmount), got.AccumulatedAmount.String())
}

func TestMissionList_FiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	owner := newID()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		m := newMission(owner, base.Add(time.Duration(i)*time.Hour))
		ids = append(ids, m.ID)
		require.NoError(t, s.Missions.Insert(ctx, m))
	}
	require.NoError(t, s.Missions.Insert(ctx, newMission(newID(), base)))

	all, err := s.Missions.List(ctx, &storage.MissionFilter{UserID: &owner})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := s.Missions.List(ctx, &storage.MissionFilter{UserID: &owner, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	past, err := s.Missions.List(ctx, &storage.MissionFilter{UserID: &owner, Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestLinkToMission_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	tx := &models.Transaction{ID: newID(), AccountID: newID(), Amount: decimal.NewFromInt(5), TransactionDate: time.Now()}
	require.NoError(t, s.Transactions.Insert(ctx, tx))
	missionID := newID()

	err := s.Transactions.LinkToMission(ctx, []uuid.UUID{tx.ID, newID()}, missionID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	linked, err := s.Transactions.ListByMission(ctx, missionID)
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestLinkToMission_RejectsOtherMission(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	tx := &models.Transaction{ID: newID(), AccountID: newID(), Amount: decimal.NewFromInt(5), TransactionDate: time.Now()}
	free := &models.Transaction{ID: newID(), AccountID: newID(), Amount: decimal.NewFromInt(7), TransactionDate: time.Now()}
	require.NoError(t, s.Transactions.Insert(ctx, tx))
	require.NoError(t, s.Transactions.Insert(ctx, free))
	first, second := newID(), newID()
	require.NoError(t, s.Transactions.LinkToMission(ctx, []uuid.UUID{tx.ID}, first))

	err := s.Transactions.LinkToMission(ctx, []uuid.UUID{free.ID, tx.ID}, second)
	assert.ErrorIs(t, err, storage.ErrAlreadyLinked)
	linked, err := s.Transactions.ListByMission(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, linked)

	assert.NoError(t, s.Transactions.LinkToMission(ctx, []uuid.UUID{tx.ID}, first))
}

func TestUserBadges_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	ub := &models.UserBadge{ID: newID(), UserID: newID(), BadgeID: newID(), AwardedAt: time.Now()}

	inserted, err := s.UserBadges.InsertIfAbsent(ctx, ub)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *ub
	dup.ID = newID()
	inserted, err = s.UserBadges.InsertIfAbsent(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	held, err := s.UserBadges.ListByUser(ctx, ub.UserID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, ub.ID, held[0].ID)
}

func TestFamilies_MembershipUnique(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	a, b := newID(), newID()
	require.NoError(t, s.Families.Insert(ctx, &models.FamilyGroup{ID: newID(), MemberIDs: []uuid.UUID{a, b}}))

	assert.Error(t, s.Families.Insert(ctx, &models.FamilyGroup{ID: newID(), MemberIDs: []uuid.UUID{a}}))
	assert.Error(t, s.Families.Insert(ctx, &models.FamilyGroup{ID: newID(), MemberIDs: []uuid.UUID{newID(), newID(), newID()}}))

	found, err := s.Families.FindByMember(ctx, b)
	require.NoError(t, err)
	assert.True(t, found.HasMember(a))

	_, err = s.Families.FindByMember(ctx, newID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMissionList_VisibleToOwnerOrHousehold(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage()
	user, partner := newID(), newID()
	household := newID()
	now := time.Now()

	personal := newMission(user, now)
	shared := newMission(partner, now.Add(time.Minute))
	shared.HouseholdID = &household
	require.NoError(t, s.Missions.Insert(ctx, personal))
	require.NoError(t, s.Missions.Insert(ctx, shared))
	require.NoError(t, s.Missions.Insert(ctx, newMission(partner, now.Add(2*time.Minute))))

	got, err := s.Missions.List(ctx, &storage.MissionFilter{VisibleTo: &storage.Visibility{UserID: user, HouseholdID: &household}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, personal.ID, got[0].ID)
	assert.Equal(t, shared.ID, got[1].ID)

	alone, err := s.Missions.List(ctx, &storage.MissionFilter{VisibleTo: &storage.Visibility{UserID: user}})
	require.NoError(t, err)
	require.Len(t, alone, 1)
	assert.Equal(t, personal.ID, alone[0].ID)
}
