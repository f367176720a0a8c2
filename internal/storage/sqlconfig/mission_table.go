package sqlconfig

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

const missionsTable = "missions"

var missionColumns = []string{
	"id", "user_id", "household_id", "parent_id", "category_id", "template_id",
	"name", "goal_amount", "accumulated_amount", "status",
	"start_date", "due_date", "completed_at", "completed_by", "created_at", "updated_at",
}

type missionRow struct {
	ID                uuid.UUID       `db:"id"`
	UserID            uuid.UUID       `db:"user_id"`
	HouseholdID       uuid.NullUUID   `db:"household_id"`
	ParentID          uuid.NullUUID   `db:"parent_id"`
	CategoryID        uuid.UUID       `db:"category_id"`
	TemplateID        uuid.NullUUID   `db:"template_id"`
	Name              string          `db:"name"`
	GoalAmount        decimal.Decimal `db:"goal_amount"`
	AccumulatedAmount decimal.Decimal `db:"accumulated_amount"`
	Status            int16           `db:"status"`
	StartDate         time.Time       `db:"start_date"`
	DueDate           time.Time       `db:"due_date"`
	CompletedAt       sql.NullTime    `db:"completed_at"`
	CompletedBy       uuid.NullUUID   `db:"completed_by"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// MissionsTable provides access to the missions table.
type MissionsTable struct {
	exec bob.Executor
}

var _ storage.IMissionTable = (*MissionsTable)(nil)

func (t *MissionsTable) FindByID(ctx context.Context, id uuid.UUID) (*models.Mission, error) {
	return t.find(ctx, id, false)
}

// FindByIDForUpdate takes a row lock held until the enclosing transaction ends.
func (t *MissionsTable) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Mission, error) {
	return t.find(ctx, id, true)
}

func (t *MissionsTable) find(ctx context.Context, id uuid.UUID, lock bool) (*models.Mission, error) {
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(columnExprs(missionColumns)...),
		sm.From(missionsTable),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	}
	if lock {
		queryMods = append(queryMods, sm.ForUpdate())
	}
	row, err := bob.One(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[missionRow]())
	if err != nil {
		return nil, notFound(err, "mission", id)
	}
	return row.toModel(), nil
}

func (t *MissionsTable) Insert(ctx context.Context, m *models.Mission) error {
	query := psql.Insert(
		im.Into(missionsTable, missionColumns...),
		im.Values(psql.Arg(
			m.ID, m.UserID, nullID(m.HouseholdID), nullID(m.ParentID), m.CategoryID, nullID(m.TemplateID),
			m.Name, m.GoalAmount, m.AccumulatedAmount, int16(m.Status),
			m.StartDate, m.DueDate, nullTime(m.CompletedAt), nullID(m.CompletedBy), m.CreatedAt, m.UpdatedAt,
		)),
	)
	_, err := bob.Exec(ctx, t.exec, query)
	return err
}

// Update writes every mutable column of m.
func (t *MissionsTable) Update(ctx context.Context, m *models.Mission) error {
	query := psql.Update(
		um.Table(missionsTable),
		um.SetCol("name").ToArg(m.Name),
		um.SetCol("goal_amount").ToArg(m.GoalAmount),
		um.SetCol("accumulated_amount").ToArg(m.AccumulatedAmount),
		um.SetCol("status").ToArg(int16(m.Status)),
		um.SetCol("start_date").ToArg(m.StartDate),
		um.SetCol("due_date").ToArg(m.DueDate),
		um.SetCol("completed_at").ToArg(nullTime(m.CompletedAt)),
		um.SetCol("completed_by").ToArg(nullID(m.CompletedBy)),
		um.SetCol("updated_at").ToArg(m.UpdatedAt),
		um.Where(psql.Quote("id").EQ(psql.Arg(m.ID))),
	)
	result, err := bob.Exec(ctx, t.exec, query)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound(sql.ErrNoRows, "mission", m.ID)
	}
	return nil
}

// List returns missions matching the filter ordered by creation. Nil filter returns all.
func (t *MissionsTable) List(ctx context.Context, filter *storage.MissionFilter) ([]*models.Mission, error) {
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(columnExprs(missionColumns)...),
		sm.From(missionsTable),
	}
	if filter != nil {
		if filter.UserID != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("user_id").EQ(psql.Arg(*filter.UserID))))
		}
		if filter.HouseholdID != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("household_id").EQ(psql.Arg(*filter.HouseholdID))))
		}
		if filter.ParentID != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("parent_id").EQ(psql.Arg(*filter.ParentID))))
		}
		if filter.CategoryID != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("category_id").EQ(psql.Arg(*filter.CategoryID))))
		}
		if filter.Status != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("status").EQ(psql.Arg(int16(*filter.Status)))))
		}
		if filter.CompletedBy != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("completed_by").EQ(psql.Arg(*filter.CompletedBy))))
		}
		if v := filter.VisibleTo; v != nil {
			if v.HouseholdID != nil {
				queryMods = append(queryMods, sm.Where(psql.Raw("(user_id = ? OR household_id = ?)", v.UserID, *v.HouseholdID)))
			} else {
				queryMods = append(queryMods, sm.Where(psql.Quote("user_id").EQ(psql.Arg(v.UserID))))
			}
		}
		if filter.Limit > 0 {
			queryMods = append(queryMods, sm.Limit(filter.Limit))
		}
		if filter.Offset > 0 {
			queryMods = append(queryMods, sm.Offset(filter.Offset))
		}
	}
	queryMods = append(queryMods,
		sm.OrderBy(psql.Quote("created_at")).Asc(),
		sm.OrderBy(psql.Quote("id")).Asc(),
	)

	rows, err := bob.All(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[missionRow]())
	if err != nil {
		return nil, err
	}
	result := make([]*models.Mission, len(rows))
	for i, row := range rows {
		result[i] = row.toModel()
	}
	return result, nil
}

func (r missionRow) toModel() *models.Mission {
	return &models.Mission{
		ID:                r.ID,
		UserID:            r.UserID,
		HouseholdID:       idPtr(r.HouseholdID),
		ParentID:          idPtr(r.ParentID),
		CategoryID:        r.CategoryID,
		TemplateID:        idPtr(r.TemplateID),
		Name:              r.Name,
		GoalAmount:        r.GoalAmount,
		AccumulatedAmount: r.AccumulatedAmount,
		Status:            models.MissionStatus(r.Status),
		StartDate:         r.StartDate.UTC(),
		DueDate:           r.DueDate.UTC(),
		CompletedAt:       timePtr(r.CompletedAt),
		CompletedBy:       idPtr(r.CompletedBy),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}
