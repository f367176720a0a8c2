package sqlconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

var badgeColumns = []string{
	"id", "name", "description", "type", "condition_type", "condition", "is_active", "created_at",
}

type badgeRow struct {
	ID            uuid.UUID `db:"id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	Type          int16     `db:"type"`
	ConditionType string    `db:"condition_type"`
	Condition     []byte    `db:"condition"`
	IsActive      bool      `db:"is_active"`
	CreatedAt     time.Time `db:"created_at"`
}

type BadgesTable struct {
	exec bob.Executor
}

var _ storage.IBadgeTable = (*BadgesTable)(nil)

func (t *BadgesTable) Insert(ctx context.Context, b *models.Badge) error {
	condition, err := json.Marshal(b.Condition)
	if err != nil {
		return fmt.Errorf("marshal badge condition: %w", err)
	}
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := psql.Insert(
		im.Into("badges", badgeColumns...),
		im.Values(psql.Arg(
			b.ID, b.Name, b.Description, int16(b.Type), string(b.ConditionType), string(condition), b.IsActive, createdAt,
		)),
	)
	_, err = bob.Exec(ctx, t.exec, query)
	return err
}

func (t *BadgesTable) ListActive(ctx context.Context, badgeType models.BadgeType) ([]*models.Badge, error) {
	query := psql.Select(
		sm.Columns(columnExprs(badgeColumns)...),
		sm.From("badges"),
		sm.Where(psql.Quote("is_active").EQ(psql.Arg(true))),
		sm.Where(psql.Quote("type").EQ(psql.Arg(int16(badgeType)))),
		sm.OrderBy(psql.Quote("name")).Asc(),
	)
	rows, err := bob.All(ctx, t.exec, query, scan.StructMapper[badgeRow]())
	if err != nil {
		return nil, err
	}

	result := make([]*models.Badge, 0, len(rows))
	for _, row := range rows {
		var condition models.BadgeCondition
		if len(row.Condition) > 0 {
			if err := json.Unmarshal(row.Condition, &condition); err != nil {
				return nil, fmt.Errorf("badge %s condition: %w", row.ID, err)
			}
		}
		result = append(result, &models.Badge{
			ID:            row.ID,
			Name:          row.Name,
			Description:   row.Description,
			Type:          models.BadgeType(row.Type),
			ConditionType: models.ConditionType(row.ConditionType),
			Condition:     condition,
			IsActive:      row.IsActive,
			CreatedAt:     row.CreatedAt.UTC(),
		})
	}
	return result, nil
}

var userBadgeColumns = []string{"id", "user_id", "badge_id", "issue_type", "issued_by", "awarded_at"}

type userBadgeRow struct {
	ID        uuid.UUID     `db:"id"`
	UserID    uuid.UUID     `db:"user_id"`
	BadgeID   uuid.UUID     `db:"badge_id"`
	IssueType int16         `db:"issue_type"`
	IssuedBy  uuid.NullUUID `db:"issued_by"`
	AwardedAt time.Time     `db:"awarded_at"`
}

type UserBadgesTable struct {
	exec bob.Executor
}

var _ storage.IUserBadgeTable = (*UserBadgesTable)(nil)

// InsertIfAbsent relies on the (user_id, badge_id) unique constraint so
// concurrent awards of the same pair insert exactly one row.
func (t *UserBadgesTable) InsertIfAbsent(ctx context.Context, ub *models.UserBadge) (bool, error) {
	query := psql.Insert(
		im.Into("user_badges", userBadgeColumns...),
		im.Values(psql.Arg(ub.ID, ub.UserID, ub.BadgeID, int16(ub.IssueType), nullID(ub.IssuedBy), ub.AwardedAt)),
		im.OnConflict("user_id", "badge_id").DoNothing(),
	)
	result, err := bob.Exec(ctx, t.exec, query)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (t *UserBadgesTable) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserBadge, error) {
	query := psql.Select(
		sm.Columns(columnExprs(userBadgeColumns)...),
		sm.From("user_badges"),
		sm.Where(psql.Quote("user_id").EQ(psql.Arg(userID))),
		sm.OrderBy(psql.Quote("awarded_at")).Asc(),
	)
	rows, err := bob.All(ctx, t.exec, query, scan.StructMapper[userBadgeRow]())
	if err != nil {
		return nil, err
	}
	result := make([]*models.UserBadge, len(rows))
	for i, row := range rows {
		result[i] = &models.UserBadge{
			ID:        row.ID,
			UserID:    row.UserID,
			BadgeID:   row.BadgeID,
			IssueType: models.IssueType(row.IssueType),
			IssuedBy:  idPtr(row.IssuedBy),
			AwardedAt: row.AwardedAt.UTC(),
		}
	}
	return result, nil
}
