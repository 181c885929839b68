package kafka

import (
	"context"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
)

// EmailEvents publishes email requests to the broker.
type EmailEvents interface {
	PublishEmailRequested(ctx context.Context, key string, req notification.EmailRequest) error
}
