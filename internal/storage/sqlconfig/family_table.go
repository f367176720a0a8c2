package sqlconfig

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

type familyRow struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}

type FamiliesTable struct {
	exec bob.Executor
}

var _ storage.IFamilyTable = (*FamiliesTable)(nil)

// Insert writes the household and its members. Run it inside a Writer so a
// rejected member leaves no partial household behind.
func (t *FamiliesTable) Insert(ctx context.Context, family *models.FamilyGroup) error {
	if len(family.MemberIDs) > models.MaxFamilyMembers {
		return fmt.Errorf("family %s has %d members, at most %d allowed", family.ID, len(family.MemberIDs), models.MaxFamilyMembers)
	}

	query := psql.Insert(
		im.Into("families", "id", "name"),
		im.Values(psql.Arg(family.ID, family.Name)),
	)
	if _, err := bob.Exec(ctx, t.exec, query); err != nil {
		return err
	}

	for _, member := range family.MemberIDs {
		query := psql.Insert(
			im.Into("family_members", "family_id", "user_id"),
			im.Values(psql.Arg(family.ID, member)),
		)
		if _, err := bob.Exec(ctx, t.exec, query); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("user %s already belongs to a family: %w", member, err)
			}
			return err
		}
	}
	return nil
}

func (t *FamiliesTable) FindByID(ctx context.Context, id uuid.UUID) (*models.FamilyGroup, error) {
	query := psql.Select(
		sm.Columns("id", "name"),
		sm.From("families"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	row, err := bob.One(ctx, t.exec, query, scan.StructMapper[familyRow]())
	if err != nil {
		return nil, notFound(err, "family", id)
	}
	return t.withMembers(ctx, row)
}

func (t *FamiliesTable) FindByMember(ctx context.Context, userID uuid.UUID) (*models.FamilyGroup, error) {
	query := psql.Select(
		sm.Columns("f.id", "f.name"),
		sm.From("families").As("f"),
		sm.InnerJoin("family_members").As("fm").On(psql.Quote("fm", "family_id").EQ(psql.Quote("f", "id"))),
		sm.Where(psql.Quote("fm", "user_id").EQ(psql.Arg(userID))),
	)
	row, err := bob.One(ctx, t.exec, query, scan.StructMapper[familyRow]())
	if err != nil {
		return nil, notFound(err, "family for user", userID)
	}
	return t.withMembers(ctx, row)
}

func (t *FamiliesTable) withMembers(ctx context.Context, row familyRow) (*models.FamilyGroup, error) {
	query := psql.Select(
		sm.Columns("user_id"),
		sm.From("family_members"),
		sm.Where(psql.Quote("family_id").EQ(psql.Arg(row.ID))),
		sm.OrderBy(psql.Quote("user_id")).Asc(),
	)
	members, err := bob.All(ctx, t.exec, query, scan.SingleColumnMapper[uuid.UUID])
	if err != nil {
		return nil, err
	}
	return &models.FamilyGroup{ID: row.ID, Name: row.Name, MemberIDs: members}, nil
}
