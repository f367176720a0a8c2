package actions

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/mission-server/internal/aggregator"
	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/testutil"
)

var fixedNow = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

type actionsTest struct {
	fx       *testutil.Fixture
	machine  *mission.Machine
	agg      *aggregator.Aggregator
	user     uuid.UUID
	category *models.Category
}

func newActionsTest(t *testing.T) *actionsTest {
	t.Helper()
	machine := mission.NewMachine(func() time.Time { return fixedNow })
	fx := testutil.NewFixture(t)
	return &actionsTest{
		fx:       fx,
		machine:  machine,
		agg:      aggregator.New(machine, testutil.Logger()),
		user:     testutil.NewID(),
		category: fx.Category("Travel"),
	}
}

func (a *actionsTest) perform(t *testing.T, action IAction) ([]events.Event, error) {
	t.Helper()
	ctx := context.Background()
	w, err := a.fx.Storage.Write(ctx)
	require.NoError(t, err)
	evts, err := action.Perform(ctx, w)
	if err != nil {
		require.NoError(t, w.Rollback())
		return nil, err
	}
	require.NoError(t, w.Commit())
	return evts, nil
}

func goal(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func tags(evts []events.Event) []events.Tag {
	result := make([]events.Tag, len(evts))
	for i, e := range evts {
		result[i] = e.Tag()
	}
	return result
}

func TestActions_Names(t *testing.T) {
	named := map[string]IAction{
		"create_mission":    &CreateMission{MissionName: "Lisbon"},
		"update_mission":    &UpdateMission{},
		"transition_status": &TransitionStatus{},
		"link_transactions": &LinkTransactions{},
	}
	for want, action := range named {
		assert.Equal(t, want, action.Name())
	}
}

// -- CreateMission tests --

func TestCreateMission_Success(t *testing.T) {
	a := newActionsTest(t)
	action := &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  a.category.ID,
		MissionName: "Lisbon",
		GoalAmount:  goal("1500.00"),
		DueDate:     fixedNow.AddDate(0, 3, 0),
	}

	evts, err := a.perform(t, action)

	require.NoError(t, err)
	require.NotNil(t, action.Result)
	assert.Equal(t, models.MissionStatusPending, action.Result.Status)
	assert.Equal(t, fixedNow, action.Result.StartDate)
	assert.True(t, action.Result.AccumulatedAmount.IsZero())
	assert.Nil(t, action.Result.HouseholdID)
	assert.Equal(t, []events.Tag{events.TagMissionCreated}, tags(evts))
	assert.Equal(t, "Lisbon", a.fx.ReloadMission(action.Result.ID).Name)
}

func TestCreateMission_CategoryNotFound(t *testing.T) {
	a := newActionsTest(t)

	_, err := a.perform(t, &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  testutil.NewID(),
		MissionName: "Lisbon",
		GoalAmount:  goal("10"),
	})

	assert.ErrorIs(t, err, mission.ErrCategoryNotFound)
}

func TestCreateMission_TemplateDefaults(t *testing.T) {
	a := newActionsTest(t)
	tpl := a.fx.Template(a.category.ID, "Summer trip", "2400.00")

	action := &CreateMission{
		Machine:    a.machine,
		ActorID:    a.user,
		CategoryID: a.category.ID,
		TemplateID: &tpl.ID,
	}
	_, err := a.perform(t, action)

	require.NoError(t, err)
	assert.Equal(t, "Summer trip", action.Result.Name)
	assert.True(t, action.Result.GoalAmount.Equal(decimal.RequireFromString("2400")))
	assert.Equal(t, &tpl.ID, action.Result.TemplateID)
}

func TestCreateMission_NameOverridesTemplate(t *testing.T) {
	a := newActionsTest(t)
	tpl := a.fx.Template(a.category.ID, "Summer trip", "2400.00")

	action := &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  a.category.ID,
		TemplateID:  &tpl.ID,
		MissionName: "Porto",
	}
	_, err := a.perform(t, action)

	require.NoError(t, err)
	assert.Equal(t, "Porto", action.Result.Name)
	assert.Equal(t, "create_mission", action.Name())
}

func TestCreateMission_TemplateNotFound(t *testing.T) {
	a := newActionsTest(t)
	missing := testutil.NewID()

	_, err := a.perform(t, &CreateMission{
		Machine:    a.machine,
		ActorID:    a.user,
		CategoryID: a.category.ID,
		TemplateID: &missing,
	})

	assert.ErrorIs(t, err, mission.ErrTemplateNotFound)
}

func TestCreateMission_TemplateFromOtherCategory(t *testing.T) {
	a := newActionsTest(t)
	other := a.fx.Category("Home")
	tpl := a.fx.Template(other.ID, "Sofa", "800")

	_, err := a.perform(t, &CreateMission{
		Machine:    a.machine,
		ActorID:    a.user,
		CategoryID: a.category.ID,
		TemplateID: &tpl.ID,
	})

	assert.ErrorIs(t, err, mission.ErrTemplateNotFound)
}

func TestCreateMission_RejectsMissingGoal(t *testing.T) {
	a := newActionsTest(t)

	_, err := a.perform(t, &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  a.category.ID,
		MissionName: "No goal",
	})

	assert.ErrorIs(t, err, mission.ErrInvalidAmount)
}

func TestCreateMission_InheritsHousehold(t *testing.T) {
	a := newActionsTest(t)
	family := a.fx.Family(a.user, testutil.NewID())

	action := &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  a.category.ID,
		MissionName: "Flat deposit",
		GoalAmount:  goal("20000"),
	}
	_, err := a.perform(t, action)

	require.NoError(t, err)
	require.NotNil(t, action.Result.HouseholdID)
	assert.Equal(t, family.ID, *action.Result.HouseholdID)
}

func TestCreateMission_ParentNotFound(t *testing.T) {
	a := newActionsTest(t)
	missing := testutil.NewID()

	_, err := a.perform(t, &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  a.category.ID,
		ParentID:    &missing,
		MissionName: "Flights",
		GoalAmount:  goal("300"),
	})

	assert.ErrorIs(t, err, mission.ErrParentMissionNotFound)
}

func TestCreateMission_ParentMustBeTopLevel(t *testing.T) {
	a := newActionsTest(t)
	root := a.fx.Mission(a.user, a.category.ID, "1000")
	child := a.fx.Mission(a.user, a.category.ID, "100", testutil.WithParent(root.ID))

	_, err := a.perform(t, &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  a.category.ID,
		ParentID:    &child.ID,
		MissionName: "Too deep",
		GoalAmount:  goal("10"),
	})

	assert.ErrorIs(t, err, mission.ErrInvalidParentMission)
}

func TestCreateMission_ParentOfAnotherUser(t *testing.T) {
	a := newActionsTest(t)
	root := a.fx.Mission(testutil.NewID(), a.category.ID, "1000")

	_, err := a.perform(t, &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  a.category.ID,
		ParentID:    &root.ID,
		MissionName: "Not mine",
		GoalAmount:  goal("10"),
	})

	assert.ErrorIs(t, err, mission.ErrInvalidParentMission)
}

func TestCreateMission_PartnerMayAddSubMission(t *testing.T) {
	a := newActionsTest(t)
	partner := testutil.NewID()
	family := a.fx.Family(a.user, partner)
	root := a.fx.Mission(partner, a.category.ID, "1000", testutil.WithHousehold(family.ID))

	action := &CreateMission{
		Machine:     a.machine,
		ActorID:     a.user,
		CategoryID:  a.category.ID,
		ParentID:    &root.ID,
		MissionName: "Hotel",
		GoalAmount:  goal("400"),
	}
	_, err := a.perform(t, action)

	require.NoError(t, err)
	assert.Equal(t, &root.ID, action.Result.ParentID)
}

// -- UpdateMission tests --

func TestUpdateMission_PatchesFields(t *testing.T) {
	a := newActionsTest(t)
	m := a.fx.Mission(a.user, a.category.ID, "1000")
	name := "Renamed"

	evts, err := a.perform(t, &UpdateMission{
		Machine:    a.machine,
		Aggregator: a.agg,
		ActorID:    a.user,
		MissionID:  m.ID,
		Update:     mission.Update{Name: &name},
	})

	require.NoError(t, err)
	assert.Equal(t, []events.Tag{events.TagMissionUpdated}, tags(evts))
	assert.Equal(t, "Renamed", a.fx.ReloadMission(m.ID).Name)
}

func TestUpdateMission_NotFound(t *testing.T) {
	a := newActionsTest(t)
	name := "x"

	_, err := a.perform(t, &UpdateMission{
		Machine:    a.machine,
		Aggregator: a.agg,
		ActorID:    a.user,
		MissionID:  testutil.NewID(),
		Update:     mission.Update{Name: &name},
	})

	assert.ErrorIs(t, err, mission.ErrMissionNotFound)
}

func TestUpdateMission_StrangerSeesNotFound(t *testing.T) {
	a := newActionsTest(t)
	m := a.fx.Mission(testutil.NewID(), a.category.ID, "1000")
	name := "x"

	_, err := a.perform(t, &UpdateMission{
		Machine:    a.machine,
		Aggregator: a.agg,
		ActorID:    a.user,
		MissionID:  m.ID,
		Update:     mission.Update{Name: &name},
	})

	assert.ErrorIs(t, err, mission.ErrMissionNotFound)
}

func TestUpdateMission_CompletedIsImmutable(t *testing.T) {
	a := newActionsTest(t)
	m := a.fx.Mission(a.user, a.category.ID, "1000", testutil.WithCompletedAt(fixedNow))
	name := "x"

	_, err := a.perform(t, &UpdateMission{
		Machine:    a.machine,
		Aggregator: a.agg,
		ActorID:    a.user,
		MissionID:  m.ID,
		Update:     mission.Update{Name: &name},
	})

	assert.ErrorIs(t, err, mission.ErrMissionImmutable)
}

func TestUpdateMission_LoweredGoalCompletes(t *testing.T) {
	a := newActionsTest(t)
	m := a.fx.Mission(a.user, a.category.ID, "1000", testutil.WithStatus(models.MissionStatusInProgress))
	deposit := a.fx.Transaction(models.TransactionTypeDeposit, "600")
	_, err := a.perform(t, &LinkTransactions{Aggregator: a.agg, ActorID: a.user, MissionID: m.ID, TransactionIDs: []uuid.UUID{deposit.ID}})
	require.NoError(t, err)

	evts, err := a.perform(t, &UpdateMission{
		Machine:    a.machine,
		Aggregator: a.agg,
		ActorID:    a.user,
		MissionID:  m.ID,
		Update:     mission.Update{GoalAmount: goal("600")},
	})

	require.NoError(t, err)
	assert.Equal(t, []events.Tag{events.TagMissionUpdated, events.TagMissionStatusChanged, events.TagMissionCompleted}, tags(evts))
	reloaded := a.fx.ReloadMission(m.ID)
	assert.Equal(t, models.MissionStatusCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)
}

// -- TransitionStatus tests --

func TestTransitionStatus_Success(t *testing.T) {
	a := newActionsTest(t)
	m := a.fx.Mission(a.user, a.category.ID, "1000")

	action := &TransitionStatus{Machine: a.machine, Aggregator: a.agg, ActorID: a.user, MissionID: m.ID, Status: models.MissionStatusInProgress}
	evts, err := a.perform(t, action)

	require.NoError(t, err)
	assert.Equal(t, []events.Tag{events.TagMissionStatusChanged}, tags(evts))
	assert.Equal(t, models.MissionStatusInProgress, a.fx.ReloadMission(m.ID).Status)
}

func TestTransitionStatus_Invalid(t *testing.T) {
	a := newActionsTest(t)
	m := a.fx.Mission(a.user, a.category.ID, "1000")

	_, err := a.perform(t, &TransitionStatus{Machine: a.machine, Aggregator: a.agg, ActorID: a.user, MissionID: m.ID, Status: models.MissionStatusCompleted})

	assert.ErrorIs(t, err, mission.ErrInvalidTransition)
	assert.Equal(t, models.MissionStatusPending, a.fx.ReloadMission(m.ID).Status)
}

func TestTransitionStatus_PartnerMayTransition(t *testing.T) {
	a := newActionsTest(t)
	partner := testutil.NewID()
	family := a.fx.Family(a.user, partner)
	m := a.fx.Mission(partner, a.category.ID, "1000", testutil.WithHousehold(family.ID))

	_, err := a.perform(t, &TransitionStatus{Machine: a.machine, Aggregator: a.agg, ActorID: a.user, MissionID: m.ID, Status: models.MissionStatusFailed})

	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusFailed, a.fx.ReloadMission(m.ID).Status)
}

func TestTransitionStatus_ResumeWithGoalCoveredCompletes(t *testing.T) {
	a := newActionsTest(t)
	m := a.fx.Mission(a.user, a.category.ID, "100")
	deposit := a.fx.Transaction(models.TransactionTypeDeposit, "150")
	_, err := a.perform(t, &LinkTransactions{Aggregator: a.agg, ActorID: a.user, MissionID: m.ID, TransactionIDs: []uuid.UUID{deposit.ID}})
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusPending, a.fx.ReloadMission(m.ID).Status)

	evts, err := a.perform(t, &TransitionStatus{Machine: a.machine, Aggregator: a.agg, ActorID: a.user, MissionID: m.ID, Status: models.MissionStatusInProgress})

	require.NoError(t, err)
	assert.Equal(t, []events.Tag{events.TagMissionStatusChanged, events.TagMissionStatusChanged, events.TagMissionCompleted}, tags(evts))
	assert.Equal(t, models.MissionStatusCompleted, a.fx.ReloadMission(m.ID).Status)
}

// -- LinkTransactions tests --

func TestLinkTransactions_MissionNotFound(t *testing.T) {
	a := newActionsTest(t)
	deposit := a.fx.Transaction(models.TransactionTypeDeposit, "10")

	_, err := a.perform(t, &LinkTransactions{Aggregator: a.agg, ActorID: a.user, MissionID: testutil.NewID(), TransactionIDs: []uuid.UUID{deposit.ID}})

	assert.ErrorIs(t, err, mission.ErrMissionNotFound)
}

func TestLinkTransactions_UpdatesResult(t *testing.T) {
	a := newActionsTest(t)
	m := a.fx.Mission(a.user, a.category.ID, "1000", testutil.WithStatus(models.MissionStatusInProgress))
	deposit := a.fx.Transaction(models.TransactionTypeDeposit, "250.50")

	action := &LinkTransactions{Aggregator: a.agg, ActorID: a.user, MissionID: m.ID, TransactionIDs: []uuid.UUID{deposit.ID}}
	evts, err := a.perform(t, action)

	require.NoError(t, err)
	assert.Equal(t, []events.Tag{events.TagTransactionsLinked}, tags(evts))
	assert.True(t, action.Result.AccumulatedAmount.Equal(decimal.RequireFromString("250.50")))
}
