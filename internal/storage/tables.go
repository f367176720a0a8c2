package storage

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/models"
)

// MissionFilter narrows List. Nil fields do not filter.
type MissionFilter struct {
	UserID      *uuid.UUID
	HouseholdID *uuid.UUID
	ParentID    *uuid.UUID
	CategoryID  *uuid.UUID
	Status      *models.MissionStatus
	CompletedBy *uuid.UUID
	// VisibleTo matches missions owned by the user or shared with the household.
	VisibleTo *Visibility
	// Limit of zero returns every match.
	Limit  int
	Offset int
}

// Visibility is one user's read scope. HouseholdID is nil without a household.
type Visibility struct {
	UserID      uuid.UUID
	HouseholdID *uuid.UUID
}

// IMissionTable defines mission persistence.
type IMissionTable interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Mission, error)
	// FindByIDForUpdate locks the row for the rest of the enclosing transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Mission, error)
	Insert(ctx context.Context, mission *models.Mission) error
	Update(ctx context.Context, mission *models.Mission) error
	List(ctx context.Context, filter *MissionFilter) ([]*models.Mission, error)
}

// ITransactionTable defines bank transaction persistence. Rows are written by
// the finance sync; this service only changes mission linkage.
type ITransactionTable interface {
	Insert(ctx context.Context, transaction *models.Transaction) error
	// FindByIDs returns the rows that exist; missing ids are simply absent.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Transaction, error)
	ListByMission(ctx context.Context, missionID uuid.UUID) ([]*models.Transaction, error)
	// LinkToMission only claims rows that are unlinked or already on
	// missionID. Any other row fails the call with ErrAlreadyLinked.
	LinkToMission(ctx context.Context, ids []uuid.UUID, missionID uuid.UUID) error
}

type IBadgeTable interface {
	Insert(ctx context.Context, badge *models.Badge) error
	ListActive(ctx context.Context, badgeType models.BadgeType) ([]*models.Badge, error)
}

// IUserBadgeTable must enforce uniqueness of (UserID, BadgeID) at write time.
type IUserBadgeTable interface {
	// InsertIfAbsent reports false when the pair already exists.
	InsertIfAbsent(ctx context.Context, userBadge *models.UserBadge) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserBadge, error)
}

type IFamilyTable interface {
	Insert(ctx context.Context, family *models.FamilyGroup) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.FamilyGroup, error)
	FindByMember(ctx context.Context, userID uuid.UUID) (*models.FamilyGroup, error)
}

type ICategoryTable interface {
	Insert(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type ITemplateTable interface {
	Insert(ctx context.Context, template *models.Template) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
}
