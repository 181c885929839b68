package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/obs/retry"
)

var ErrBadRequest = errors.New("malformed email request")

type Handler struct {
	Out    notification.EmailSender
	Policy retry.Policy
}

// HandleEmailRequested validates the request and sends it with retries.
func (h *Handler) HandleEmailRequested(ctx context.Context, req notification.EmailRequest) error {
	if _, err := mail.ParseAddress(req.To); err != nil {
		return fmt.Errorf("%w: recipient %q: %w", ErrBadRequest, req.To, err)
	}
	if req.Subject == "" && req.Body == "" {
		return fmt.Errorf("%w: empty message", ErrBadRequest)
	}

	if err := retry.Do(ctx, func() error {
		return h.Out.Send(ctx, req.To, req.Subject, req.Body)
	}, h.Policy); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
