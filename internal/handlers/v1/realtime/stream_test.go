package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/carson-networks/mission-server/internal/metrics"
	"github.com/carson-networks/mission-server/internal/models"
	"github.com/carson-networks/mission-server/internal/realtime"
	"github.com/carson-networks/mission-server/internal/storage"
	"github.com/carson-networks/mission-server/internal/testutil"
)

type stubFamilies struct {
	family *models.FamilyGroup
}

func (s stubFamilies) FindByMember(_ context.Context, userID uuid.UUID) (*models.FamilyGroup, error) {
	if s.family == nil || !s.family.HasMember(userID) {
		return nil, storage.ErrNotFound
	}
	return s.family, nil
}

func TestHTTP_Stream_DeliversHouseholdMessages(t *testing.T) {
	notifier := realtime.NewNotifier(realtime.NewLocalRegistry(), testutil.Logger(),
		metrics.New(prometheus.NewRegistry()), realtime.Options{Heartbeat: time.Hour})
	a, b := testutil.NewID(), testutil.NewID()
	family := &models.FamilyGroup{ID: testutil.NewID(), MemberIDs: []uuid.UUID{a, b}}

	_, api := humatest.New(t)
	NewStreamHandler(notifier, stubFamilies{family: family}, testutil.Logger()).Register(api)

	go func() {
		assert.Eventually(t, func() bool { return notifier.Connected() == 1 }, 2*time.Second, 5*time.Millisecond)
		notifier.DeliverHousehold(family.ID, realtime.Message{Type: realtime.MessagePartnerMissionCreated, ActorID: &b}, &b)
		notifier.Unsubscribe(a)
	}()

	resp := api.Get("/v1/realtime", "X-User-ID: "+a.String())

	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/event-stream")
	body := resp.Body.String()
	assert.Contains(t, body, "data: {")
	assert.Contains(t, body, `"type":"partner_mission_created"`)
	assert.Equal(t, 0, notifier.Connected())
}

func TestHTTP_Stream_MissingUserHeader(t *testing.T) {
	notifier := realtime.NewNotifier(realtime.NewLocalRegistry(), testutil.Logger(), nil, realtime.Options{})

	_, api := humatest.New(t)
	NewStreamHandler(notifier, stubFamilies{}, testutil.Logger()).Register(api)

	resp := api.Get("/v1/realtime")

	assert.Equal(t, 422, resp.Code)
	assert.Equal(t, 0, notifier.Connected())
}
