package models

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

type BadgeType int8

const (
	BadgeTypeLifecycle BadgeType = iota
	BadgeTypeStreak
	BadgeTypeFamily
	BadgeTypeAchievement
	BadgeTypeSpecial
)

func (t BadgeType) String() string {
	switch t {
	case BadgeTypeLifecycle:
		return "lifecycle"
	case BadgeTypeStreak:
		return "streak"
	case BadgeTypeFamily:
		return "family"
	case BadgeTypeAchievement:
		return "achievement"
	case BadgeTypeSpecial:
		return "special"
	}
	return "unknown"
}

// ConditionType names the rule a badge's condition payload is evaluated with.
type ConditionType string

const (
	ConditionCategoryCompletion ConditionType = "category_completion"
	ConditionConsecutiveMonths  ConditionType = "consecutive_months"
	ConditionFamilyCompletion   ConditionType = "family_joint_completion"
)

// BadgeCondition is the condition-value payload stored alongside a badge.
// A nil CategoryID on a category rule matches every category.
type BadgeCondition struct {
	CategoryID     *uuid.UUID `json:"categoryId,omitempty"`
	RequiredCount  int        `json:"requiredCount,omitempty"`
	RequiredMonths int        `json:"requiredMonths,omitempty"`
}

// Badge is a static award rule managed by administrators.
type Badge struct {
	ID            uuid.UUID
	Name          string
	Description   string
	Type          BadgeType
	ConditionType ConditionType
	Condition     BadgeCondition
	IsActive      bool
	CreatedAt     time.Time
}

type IssueType int8

const (
	IssueTypeAuto IssueType = iota
	IssueTypeManual
)

// UserBadge records that a user holds a badge. (UserID, BadgeID) is unique.
type UserBadge struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	BadgeID   uuid.UUID
	IssueType IssueType
	IssuedBy  *uuid.UUID
	AwardedAt time.Time
}
