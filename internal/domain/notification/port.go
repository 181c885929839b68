package notification

import "context"

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id, recipientID int64) (*View, error)
	MarkRead(ctx context.Context, id, recipientID int64) (*View, error)
	ListForRecipient(ctx context.Context, recipientID int64, f ListFilter) (*Page, error)
}

// MailQueue accepts email requests for asynchronous delivery.
type MailQueue interface {
	Enqueue(ctx context.Context, req EmailRequest) error
}
