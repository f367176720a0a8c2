package models

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// MissionStatus is the lifecycle state of a mission.
type MissionStatus int8

const (
	MissionStatusPending MissionStatus = iota
	MissionStatusInProgress
	MissionStatusCompleted
	MissionStatusFailed
)

var missionStatusNames = map[MissionStatus]string{
	MissionStatusPending:    "pending",
	MissionStatusInProgress: "in_progress",
	MissionStatusCompleted:  "completed",
	MissionStatusFailed:     "failed",
}

func (s MissionStatus) String() string {
	if name, ok := missionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int8(s))
}

// ParseMissionStatus maps the wire name back to a MissionStatus.
func ParseMissionStatus(name string) (MissionStatus, error) {
	for status, n := range missionStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown mission status %q", name)
}

// Mission is a household- or user-scoped savings goal.
type Mission struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	HouseholdID       *uuid.UUID
	ParentID          *uuid.UUID
	CategoryID        uuid.UUID
	TemplateID        *uuid.UUID
	Name              string
	GoalAmount        decimal.Decimal
	AccumulatedAmount decimal.Decimal
	Status            MissionStatus
	StartDate         time.Time
	DueDate           time.Time
	CompletedAt       *time.Time
	// CompletedBy is the user whose action completed the mission.
	CompletedBy       *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsCompleted reports whether the mission reached its terminal state.
func (m *Mission) IsCompleted() bool {
	return m.Status == MissionStatusCompleted
}

// Clone returns a deep copy so snapshots carried on events never alias live state.
func (m *Mission) Clone() *Mission {
	c := *m
	c.HouseholdID = cloneID(m.HouseholdID)
	c.ParentID = cloneID(m.ParentID)
	c.TemplateID = cloneID(m.TemplateID)
	c.CompletedBy = cloneID(m.CompletedBy)
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
