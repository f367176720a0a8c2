package sqlconfig

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

type CategoriesTable struct {
	exec bob.Executor
}

var _ storage.ICategoryTable = (*CategoriesTable)(nil)

func (t *CategoriesTable) Insert(ctx context.Context, c *models.Category) error {
	query := psql.Insert(
		im.Into("categories", "id", "name"),
		im.Values(psql.Arg(c.ID, c.Name)),
	)
	_, err := bob.Exec(ctx, t.exec, query)
	return err
}

func (t *CategoriesTable) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	query := psql.Select(
		sm.Columns("id", "name"),
		sm.From("categories"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	row, err := bob.One(ctx, t.exec, query, scan.StructMapper[models.Category]())
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return &row, nil
}

type templateRow struct {
	ID         uuid.UUID       `db:"id"`
	CategoryID uuid.UUID       `db:"category_id"`
	Name       string          `db:"name"`
	GoalAmount decimal.Decimal `db:"goal_amount"`
}

type TemplatesTable struct {
	exec bob.Executor
}

var _ storage.ITemplateTable = (*TemplatesTable)(nil)

func (t *TemplatesTable) Insert(ctx context.Context, tpl *models.Template) error {
	query := psql.Insert(
		im.Into("templates", "id", "category_id", "name", "goal_amount"),
		im.Values(psql.Arg(tpl.ID, tpl.CategoryID, tpl.Name, tpl.GoalAmount)),
	)
	_, err := bob.Exec(ctx, t.exec, query)
	return err
}

func (t *TemplatesTable) FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	query := psql.Select(
		sm.Columns("id", "category_id", "name", "goal_amount"),
		sm.From("templates"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	row, err := bob.One(ctx, t.exec, query, scan.StructMapper[templateRow]())
	if err != nil {
		return nil, notFound(err, "template", id)
	}
	return &models.Template{ID: row.ID, CategoryID: row.CategoryID, Name: row.Name, GoalAmount: row.GoalAmount}, nil
}
