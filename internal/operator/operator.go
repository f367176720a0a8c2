package operator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/metrics"
	"github.com/carson-networks/mission-server/internal/operator/actions"
	"github.com/carson-networks/mission-server/internal/storage"
)

// Operator is the worker that processes items from the queue. Events an
// action produces are published only after its transaction commits.
type Operator struct {
	storage   *storage.Storage
	publisher events.Publisher
	queue     chan ActionItem
	logger    *logrus.Logger
	metrics   *metrics.Metrics
}

func NewOperator(s *storage.Storage, publisher events.Publisher, queue chan ActionItem, logger *logrus.Logger, m *metrics.Metrics) *Operator {
	return &Operator{
		storage:   s,
		publisher: publisher,
		queue:     queue,
		logger:    logger,
		metrics:   m,
	}
}

// Run listens to the queue and processes items. Exits when the queue is closed.
func (o *Operator) Run() {
	for item := range o.queue {
		o.processItem(item)
	}
}

func (o *Operator) processItem(item ActionItem) {
	start := time.Now()
	name := item.action.Name()
	log := o.logger.WithField("action", name)

	if err := item.ctx.Err(); err != nil {
		item.response <- ActionItemResponse{err: err}
		return
	}

	writer, err := o.storage.Write(item.ctx)
	if err != nil {
		o.finish(item, name, start, err)
		return
	}

	produced, err := item.action.Perform(item.ctx, writer)
	if err != nil {
		if rbErr := writer.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("Operator.Rollback.Error")
		}
		o.finish(item, name, start, err)
		return
	}

	if err = writer.Commit(); err != nil {
		o.finish(item, name, start, err)
		return
	}

	for _, event := range produced {
		o.publisher.Publish(event)
	}
	o.finish(item, name, start, nil)
}

func (o *Operator) finish(item ActionItem, name string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.metrics.ObserveAction(name, result, time.Since(start).Seconds())
	item.response <- ActionItemResponse{err: err}
}

type ActionItem struct {
	ctx      context.Context
	action   actions.IAction
	response chan ActionItemResponse
}

type ActionItemResponse struct {
	err error
}
