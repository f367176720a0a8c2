package realtime

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/realtime"
	"github.com/carson-networks/mission-server/internal/storage"
)

type StreamInput struct {
	UserID string `header:"X-User-ID" required:"true" format:"uuid" doc:"Acting user UUID"`
}

type familyFinder interface {
	FindByMember(ctx context.Context, userID uuid.UUID) (*models.FamilyGroup, error)
}

type subscriber interface {
	Subscribe(userID uuid.UUID, householdID *uuid.UUID) *realtime.Stream
}

// StreamHandler handles GET /v1/realtime, a server-sent event feed of the
// user's own and partner notifications.
type StreamHandler struct {
	Notifier subscriber
	Families familyFinder
	Logger   *logrus.Logger
}

func NewStreamHandler(notifier subscriber, families familyFinder, logger *logrus.Logger) *StreamHandler {
	return &StreamHandler{Notifier: notifier, Families: families, Logger: logger}
}

func (h *StreamHandler) Register(api huma.API) {
	sse.Register(api, huma.Operation{
		OperationID: "realtime-stream",
		Method:      http.MethodGet,
		Path:        "/v1/realtime",
		Summary:     "Subscribe to realtime notifications",
		Description: "Streams mission and badge notifications for the acting user. A new subscription replaces the previous one.",
		Tags:        []string{"Realtime"},
	}, map[string]any{
		"message": realtime.Message{},
	}, h.handle)
}

func (h *StreamHandler) householdOf(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	family, err := h.Families.FindByMember(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &family.ID, nil
}

func (h *StreamHandler) handle(ctx context.Context, input *StreamInput, send sse.Sender) {
	log := h.Logger.WithField("userID", input.UserID)

	userID, err := uuid.FromString(input.UserID)
	if err != nil {
		log.WithError(err).Warn("RealtimeHandler.Stream.InvalidUser")
		return
	}
	householdID, err := h.householdOf(ctx, userID)
	if err != nil {
		log.WithError(err).Error("RealtimeHandler.Stream.HouseholdLookup")
		return
	}

	stream := h.Notifier.Subscribe(userID, householdID)
	err = stream.Run(ctx, func(msg realtime.Message) error {
		return send.Data(msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("RealtimeHandler.Stream.Closed")
		return
	}
	log.Debug("RealtimeHandler.Stream.Closed")
}
