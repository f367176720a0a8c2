package models

import (
	"slices"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// MaxFamilyMembers bounds a household.
const MaxFamilyMembers = 2

// FamilyGroup is a household of at most two users.
type FamilyGroup struct {
	ID        uuid.UUID
	Name      string
	MemberIDs []uuid.UUID
}

func (f *FamilyGroup) HasMember(userID uuid.UUID) bool {
	return slices.Contains(f.MemberIDs, userID)
}

// Category groups missions, e.g. "Travel" or "Emergency fund".
type Category struct {
	ID   uuid.UUID
	Name string
}

// Template is a predefined mission shape within a category.
type Template struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	GoalAmount decimal.Decimal
}
