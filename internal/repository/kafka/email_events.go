package kafka

import (
	"context"

	domainkafka "github.com/NordCoder/safecode-crm/internal/domain/kafka"
	"github.com/NordCoder/safecode-crm/internal/domain/notification"
)

type EmailEventsKafka struct {
	p *Producer
}

func NewEmailEventsKafka(p *Producer) *EmailEventsKafka { return &EmailEventsKafka{p: p} }

var _ domainkafka.EmailEvents = (*EmailEventsKafka)(nil)

func (e *EmailEventsKafka) PublishEmailRequested(ctx context.Context, key string, req notification.EmailRequest) error {
	return e.p.PublishJSON(ctx, []byte(key), req)
}
