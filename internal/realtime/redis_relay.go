package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	channelPrefix    = "missions:rt:"
	userChannel      = channelPrefix + "user:"
	householdChannel = channelPrefix + "household:"
)

type envelope struct {
	Exclude *uuid.UUID `json:"exclude,omitempty"`
	Message Message    `json:"message"`
}

// RedisRelay is a Broker over Redis pub/sub. Every node publishes sends to a
// per-user or per-household channel and delivers what it receives to its
// local sessions.
type RedisRelay struct {
	client   *redis.Client
	notifier *Notifier
	logger   *logrus.Logger
}

func NewRedisRelay(client *redis.Client, notifier *Notifier, logger *logrus.Logger) *RedisRelay {
	return &RedisRelay{client: client, notifier: notifier, logger: logger}
}

func (r *RedisRelay) PublishUser(ctx context.Context, userID uuid.UUID, msg Message) error {
	return r.publish(ctx, userChannel+userID.String(), envelope{Message: msg})
}

func (r *RedisRelay) PublishHousehold(ctx context.Context, householdID uuid.UUID, msg Message, exclude *uuid.UUID) error {
	return r.publish(ctx, householdChannel+householdID.String(), envelope{Exclude: exclude, Message: msg})
}

func (r *RedisRelay) publish(ctx context.Context, channel string, env envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal realtime message: %w", err)
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Run consumes relayed messages until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s*: %w", channelPrefix, err)
	}
	r.logger.Info("RedisRelay.Run.Subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := r.dispatch(msg.Channel, msg.Payload); err != nil {
				r.logger.WithError(err).WithField("channel", msg.Channel).Warn("RedisRelay.Dispatch.Error")
			}
		}
	}
}

func (r *RedisRelay) dispatch(channel, payload string) error {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	switch {
	case strings.HasPrefix(channel, userChannel):
		id, err := uuid.FromString(strings.TrimPrefix(channel, userChannel))
		if err != nil {
			return err
		}
		r.notifier.DeliverUser(id, env.Message)
	case strings.HasPrefix(channel, householdChannel):
		id, err := uuid.FromString(strings.TrimPrefix(channel, householdChannel))
		if err != nil {
			return err
		}
		r.notifier.DeliverHousehold(id, env.Message, env.Exclude)
	default:
		return fmt.Errorf("unknown channel")
	}
	return nil
}
