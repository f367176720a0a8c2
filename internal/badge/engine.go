// Package badge evaluates award rules when missions complete and issues each
// badge at most once per user.
package badge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/metrics"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/storage"
)

const subscriberName = "badge_engine"

// Engine is stateless; every evaluation reads current aggregate state.
type Engine struct {
	storage   *storage.Storage
	publisher events.Publisher
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewEngine(s *storage.Storage, publisher events.Publisher, logger *logrus.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		storage:   s,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Register subscribes the engine to mission completions.
func (e *Engine) Register(bus events.Subscriber) {
	bus.Subscribe(subscriberName, e.Handle, events.TagMissionCompleted)
}

// Handle runs the lifecycle, streak and family checks for a completed mission.
// Redelivery of the same event is harmless.
func (e *Engine) Handle(ctx context.Context, event events.Event) error {
	completed, ok := event.(events.MissionCompleted)
	if !ok {
		return nil
	}
	log := e.logger.WithFields(logrus.Fields{
		"missionID": completed.Mission.ID,
		"actor":     completed.ActorID,
	})
	log.Debug("BadgeEngine.Handle.Start")

	var firstErr error
	for _, check := range []struct {
		name string
		run  func(context.Context, events.MissionCompleted) error
	}{
		{"lifecycle", e.checkLifecycle},
		{"streak", e.checkStreak},
		{"family", e.checkFamily},
	} {
		if err := check.run(ctx, completed); err != nil {
			log.WithError(err).WithField("check", check.name).Error("BadgeEngine.Check.Error")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *Engine) checkLifecycle(ctx context.Context, completed events.MissionCompleted) error {
	badges, err := e.storage.Badges.ListActive(ctx, models.BadgeTypeLifecycle)
	if err != nil {
		return fmt.Errorf("list lifecycle badges: %w", err)
	}
	if len(badges) == 0 {
		return nil
	}

	// Missions count for whoever completed them, including a partner's.
	status := models.MissionStatusCompleted
	done, err := e.storage.Missions.List(ctx, &storage.MissionFilter{CompletedBy: &completed.ActorID, Status: &status})
	if err != nil {
		return fmt.Errorf("list completed missions: %w", err)
	}

	perCategory := make(map[uuid.UUID]int)
	for _, m := range done {
		perCategory[m.CategoryID]++
	}

	var errs []error
	for _, b := range badges {
		if b.ConditionType != models.ConditionCategoryCompletion {
			continue
		}
		count := len(done)
		if b.Condition.CategoryID != nil {
			if *b.Condition.CategoryID != completed.Mission.CategoryID {
				continue
			}
			count = perCategory[*b.Condition.CategoryID]
		}
		if b.Condition.RequiredCount <= count {
			errs = append(errs, e.attemptAward(ctx, completed.ActorID, b))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) checkStreak(ctx context.Context, completed events.MissionCompleted) error {
	badges, err := e.storage.Badges.ListActive(ctx, models.BadgeTypeStreak)
	if err != nil {
		return fmt.Errorf("list streak badges: %w", err)
	}
	if len(badges) == 0 {
		return nil
	}

	status := models.MissionStatusCompleted
	done, err := e.storage.Missions.List(ctx, &storage.MissionFilter{CompletedBy: &completed.ActorID, Status: &status})
	if err != nil {
		return fmt.Errorf("list completed missions: %w", err)
	}
	times := make([]time.Time, 0, len(done))
	for _, m := range done {
		if m.CompletedAt != nil {
			times = append(times, *m.CompletedAt)
		}
	}
	streak := ConsecutiveMonths(times)

	var errs []error
	for _, b := range badges {
		if b.ConditionType != models.ConditionConsecutiveMonths {
			continue
		}
		if b.Condition.RequiredMonths <= streak {
			errs = append(errs, e.attemptAward(ctx, completed.ActorID, b))
		}
	}
	return errors.Join(errs...)
}

// checkFamily counts household completions regardless of which member
// finished them and awards matching badges to every member.
func (e *Engine) checkFamily(ctx context.Context, completed events.MissionCompleted) error {
	householdID := completed.Mission.HouseholdID
	if householdID == nil {
		return nil
	}
	badges, err := e.storage.Badges.ListActive(ctx, models.BadgeTypeFamily)
	if err != nil {
		return fmt.Errorf("list family badges: %w", err)
	}
	if len(badges) == 0 {
		return nil
	}

	family, err := e.storage.Families.FindByID(ctx, *householdID)
	if err != nil {
		return fmt.Errorf("find household %s: %w", *householdID, err)
	}
	status := models.MissionStatusCompleted
	joint, err := e.storage.Missions.List(ctx, &storage.MissionFilter{HouseholdID: householdID, Status: &status})
	if err != nil {
		return fmt.Errorf("list household missions: %w", err)
	}

	var errs []error
	for _, b := range badges {
		if b.ConditionType != models.ConditionFamilyCompletion || b.Condition.RequiredCount > len(joint) {
			continue
		}
		for _, member := range family.MemberIDs {
			errs = append(errs, e.attemptAward(ctx, member, b))
		}
	}
	return errors.Join(errs...)
}

// attemptAward issues b to user unless the pair already exists. The
// duplicate case is expected under redelivery and is not an error.
func (e *Engine) attemptAward(ctx context.Context, user uuid.UUID, b *models.Badge) error {
	log := e.logger.WithFields(logrus.Fields{
		"userID":  user,
		"badgeID": b.ID,
		"badge":   b.Name,
	})

	award := &models.UserBadge{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    user,
		BadgeID:   b.ID,
		IssueType: models.IssueTypeAuto,
		AwardedAt: e.now().UTC(),
	}
	inserted, err := e.storage.UserBadges.InsertIfAbsent(ctx, award)
	if err != nil {
		return fmt.Errorf("award badge %s: %w", b.ID, err)
	}
	if !inserted {
		e.metrics.IncBadgesDuplicate()
		log.WithError(mission.ErrAlreadyAwarded).Debug("BadgeEngine.Award.Skipped")
		return nil
	}

	e.metrics.IncBadgesAwarded(b.Type.String())
	log.Info("BadgeEngine.Award.Complete")
	e.publisher.Publish(events.BadgeEarned{
		Meta:      events.Meta{ActorID: user, OccurredAt: award.AwardedAt},
		Badge:     *b,
		UserBadge: *award,
	})
	return nil
}
