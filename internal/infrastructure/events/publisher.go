package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/calima-dev/audixa/internal/domain"
	"github.com/calima-dev/audixa/internal/infrastructure/logging"
	"github.com/calima-dev/audixa/internal/infrastructure/messaging"
	"github.com/calima-dev/audixa/internal/infrastructure/metrics"
)

// AuditPublisher emits audit events over the shared broker connection. It is
// fire-and-forget: a failed send is logged, counted and dropped, never
// surfaced to the business caller. A committed client or invoice mutation must
// not fail or block because the audit pipe is down, so audit completeness is
// deliberately traded for availability here.
type AuditPublisher struct {
	rabbitmq       *messaging.RabbitMQ
	logger         logging.Logger
	metrics        *metrics.Metrics
	publishTimeout time.Duration
}

var _ domain.AuditSink = (*AuditPublisher)(nil)

func NewAuditPublisher(rabbitmq *messaging.RabbitMQ, logger logging.Logger, m *metrics.Metrics, publishTimeout time.Duration) *AuditPublisher {
	if publishTimeout <= 0 {
		publishTimeout = 2 * time.Second
	}

	return &AuditPublisher{
		rabbitmq:       rabbitmq,
		logger:         logger,
		metrics:        m,
		publishTimeout: publishTimeout,
	}
}

func (p *AuditPublisher) Publish(ctx context.Context, event domain.AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(logging.Audit, logging.Publish, "failed to serialize audit event", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			logging.ResourceType: string(event.ResourceType),
			logging.ResourceID:   event.ResourceID,
		})
		return
	}

	// The publish must never hold the business transaction open waiting on
	// the broker.
	sendCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	routingKey := event.RoutingKey()

	if err := p.rabbitmq.Publish(sendCtx, routingKey, body); err != nil {
		p.metrics.PublishFailures.Inc()
		p.logger.Error(logging.Audit, logging.Publish, "failed to publish audit event, dropping", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			logging.RoutingKey:   routingKey,
			logging.ResourceType: string(event.ResourceType),
			logging.ResourceID:   event.ResourceID,
		})
		return
	}

	p.metrics.EventsPublished.WithLabelValues(string(event.ResourceType), string(event.Action)).Inc()

	p.logger.Debug(logging.Audit, logging.Publish, "published audit event", map[logging.ExtraKey]any{
		logging.RoutingKey: routingKey,
		logging.ResourceID: event.ResourceID,
	})
}

func (p *AuditPublisher) RecordCreate(ctx context.Context, resourceType domain.ResourceType, resourceID string, attributes map[string]any) {
	p.Publish(ctx, domain.AuditEvent{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       domain.ActionCreate,
		ChangesMade:  attributes,
		Status:       domain.StatusSuccess,
	})
}

func (p *AuditPublisher) RecordUpdate(ctx context.Context, resourceType domain.ResourceType, resourceID string, changes map[string]any) {
	p.Publish(ctx, domain.AuditEvent{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       domain.ActionUpdate,
		ChangesMade:  changes,
		Status:       domain.StatusSuccess,
	})
}

func (p *AuditPublisher) RecordDelete(ctx context.Context, resourceType domain.ResourceType, resourceID string, attributes map[string]any) {
	p.Publish(ctx, domain.AuditEvent{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       domain.ActionDelete,
		ChangesMade:  attributes,
		Status:       domain.StatusSuccess,
	})
}

func (p *AuditPublisher) RecordError(ctx context.Context, resourceType domain.ResourceType, resourceID string, action domain.Action, errorMessage string) {
	p.Publish(ctx, domain.AuditEvent{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Status:       domain.StatusFailed,
		ErrorMessage: errorMessage,
	})
}
