package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

type missionTable struct{ a access }

func (t *missionTable) FindByID(_ context.Context, id uuid.UUID) (*models.Mission, error) {
	var found *models.Mission
	t.a.read(func(s *state) {
		if m, ok := s.missions[id]; ok {
			found = m.Clone()
		}
	})
	if found == nil {
		return nil, fmt.Errorf("mission %s: %w", id, storage.ErrNotFound)
	}
	return found, nil
}

func (t *missionTable) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Mission, error) {
	return t.FindByID(ctx, id)
}

func (t *missionTable) Insert(_ context.Context, mission *models.Mission) error {
	return t.a.write(func(s *state) error {
		if _, exists := s.missions[mission.ID]; exists {
			return fmt.Errorf("mission %s already exists", mission.ID)
		}
		s.missions[mission.ID] = mission.Clone()
		return nil
	})
}

func (t *missionTable) Update(_ context.Context, mission *models.Mission) error {
	return t.a.write(func(s *state) error {
		if _, exists := s.missions[mission.ID]; !exists {
			return fmt.Errorf("mission %s: %w", mission.ID, storage.ErrNotFound)
		}
		s.missions[mission.ID] = mission.Clone()
		return nil
	})
}

func (t *missionTable) List(_ context.Context, filter *storage.MissionFilter) ([]*models.Mission, error) {
	var result []*models.Mission
	t.a.read(func(s *state) {
		for _, m := range s.missions {
			if matchesMission(m, filter) {
				result = append(result, m.Clone())
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if filter != nil {
		result = page(result, filter.Offset, filter.Limit)
	}
	return result, nil
}

func page[T any](items []T, offset, limit int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func matchesMission(m *models.Mission, filter *storage.MissionFilter) bool {
	if filter == nil {
		return true
	}
	if filter.UserID != nil && m.UserID != *filter.UserID {
		return false
	}
	if filter.HouseholdID != nil && (m.HouseholdID == nil || *m.HouseholdID != *filter.HouseholdID) {
		return false
	}
	if filter.ParentID != nil && (m.ParentID == nil || *m.ParentID != *filter.ParentID) {
		return false
	}
	if filter.CategoryID != nil && m.CategoryID != *filter.CategoryID {
		return false
	}
	if filter.Status != nil && m.Status != *filter.Status {
		return false
	}
	if filter.CompletedBy != nil && (m.CompletedBy == nil || *m.CompletedBy != *filter.CompletedBy) {
		return false
	}
	if v := filter.VisibleTo; v != nil && m.UserID != v.UserID {
		if v.HouseholdID == nil || m.HouseholdID == nil || *m.HouseholdID != *v.HouseholdID {
			return false
		}
	}
	return true
}

type transactionTable struct{ a access }

func copyTransaction(tx *models.Transaction) *models.Transaction {
	c := *tx
	if tx.MissionID != nil {
		id := *tx.MissionID
		c.MissionID = &id
	}
	return &c
}

func (t *transactionTable) Insert(_ context.Context, transaction *models.Transaction) error {
	return t.a.write(func(s *state) error {
		if _, exists := s.transactions[transaction.ID]; exists {
			return fmt.Errorf("transaction %s already exists", transaction.ID)
		}
		s.transactions[transaction.ID] = copyTransaction(transaction)
		return nil
	})
}

func (t *transactionTable) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*models.Transaction, error) {
	var result []*models.Transaction
	t.a.read(func(s *state) {
		for _, id := range ids {
			if tx, ok := s.transactions[id]; ok {
				result = append(result, copyTransaction(tx))
			}
		}
	})
	return result, nil
}

func (t *transactionTable) ListByMission(_ context.Context, missionID uuid.UUID) ([]*models.Transaction, error) {
	var result []*models.Transaction
	t.a.read(func(s *state) {
		for _, tx := range s.transactions {
			if tx.MissionID != nil && *tx.MissionID == missionID {
				result = append(result, copyTransaction(tx))
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].TransactionDate.Before(result[j].TransactionDate)
	})
	return result, nil
}

func (t *transactionTable) LinkToMission(_ context.Context, ids []uuid.UUID, missionID uuid.UUID) error {
	return t.a.write(func(s *state) error {
		for _, id := range ids {
			tx, ok := s.transactions[id]
			if !ok {
				return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
			}
			if tx.MissionID != nil && *tx.MissionID != missionID {
				return fmt.Errorf("transaction %s: %w", id, storage.ErrAlreadyLinked)
			}
		}
		for _, id := range ids {
			linked := copyTransaction(s.transactions[id])
			mid := missionID
			linked.MissionID = &mid
			s.transactions[id] = linked
		}
		return nil
	})
}

type badgeTable struct{ a access }

func (t *badgeTable) Insert(_ context.Context, badge *models.Badge) error {
	return t.a.write(func(s *state) error {
		c := *badge
		s.badges[badge.ID] = &c
		return nil
	})
}

func (t *badgeTable) ListActive(_ context.Context, badgeType models.BadgeType) ([]*models.Badge, error) {
	var result []*models.Badge
	t.a.read(func(s *state) {
		for _, b := range s.badges {
			if b.IsActive && b.Type == badgeType {
				c := *b
				result = append(result, &c)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

type userBadgeTable struct{ a access }

func (t *userBadgeTable) InsertIfAbsent(_ context.Context, userBadge *models.UserBadge) (bool, error) {
	inserted := false
	err := t.a.write(func(s *state) error {
		key := userBadgeKey{userID: userBadge.UserID, badgeID: userBadge.BadgeID}
		if _, exists := s.userBadges[key]; exists {
			return nil
		}
		c := *userBadge
		s.userBadges[key] = &c
		inserted = true
		return nil
	})
	return inserted, err
}

func (t *userBadgeTable) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.UserBadge, error) {
	var result []*models.UserBadge
	t.a.read(func(s *state) {
		for key, ub := range s.userBadges {
			if key.userID == userID {
				c := *ub
				result = append(result, &c)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].AwardedAt.Before(result[j].AwardedAt)
	})
	return result, nil
}

type familyTable struct{ a access }

func copyFamily(f *models.FamilyGroup) *models.FamilyGroup {
	c := *f
	c.MemberIDs = slices.Clone(f.MemberIDs)
	return &c
}

func (t *familyTable) Insert(_ context.Context, family *models.FamilyGroup) error {
	if len(family.MemberIDs) > models.MaxFamilyMembers {
		return fmt.Errorf("family %s has %d members, at most %d allowed", family.ID, len(family.MemberIDs), models.MaxFamilyMembers)
	}
	return t.a.write(func(s *state) error {
		for _, existing := range s.families {
			for _, member := range family.MemberIDs {
				if existing.ID != family.ID && existing.HasMember(member) {
					return fmt.Errorf("user %s already belongs to family %s", member, existing.ID)
				}
			}
		}
		s.families[family.ID] = copyFamily(family)
		return nil
	})
}

func (t *familyTable) FindByID(_ context.Context, id uuid.UUID) (*models.FamilyGroup, error) {
	var found *models.FamilyGroup
	t.a.read(func(s *state) {
		if f, ok := s.families[id]; ok {
			found = copyFamily(f)
		}
	})
	if found == nil {
		return nil, fmt.Errorf("family %s: %w", id, storage.ErrNotFound)
	}
	return found, nil
}

func (t *familyTable) FindByMember(_ context.Context, userID uuid.UUID) (*models.FamilyGroup, error) {
	var found *models.FamilyGroup
	t.a.read(func(s *state) {
		for _, f := range s.families {
			if f.HasMember(userID) {
				found = copyFamily(f)
				return
			}
		}
	})
	if found == nil {
		return nil, fmt.Errorf("family for user %s: %w", userID, storage.ErrNotFound)
	}
	return found, nil
}

type categoryTable struct{ a access }

func (t *categoryTable) Insert(_ context.Context, category *models.Category) error {
	return t.a.write(func(s *state) error {
		c := *category
		s.categories[category.ID] = &c
		return nil
	})
}

func (t *categoryTable) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	var found *models.Category
	t.a.read(func(s *state) {
		if c, ok := s.categories[id]; ok {
			cp := *c
			found = &cp
		}
	})
	if found == nil {
		return nil, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	return found, nil
}

type templateTable struct{ a access }

func (t *templateTable) Insert(_ context.Context, template *models.Template) error {
	return t.a.write(func(s *state) error {
		c := *template
		s.templates[template.ID] = &c
		return nil
	})
}

func (t *templateTable) FindByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	var found *models.Template
	t.a.read(func(s *state) {
		if tpl, ok := s.templates[id]; ok {
			cp := *tpl
			found = &cp
		}
	})
	if found == nil {
		return nil, fmt.Errorf("template %s: %w", id, storage.ErrNotFound)
	}
	return found, nil
}
