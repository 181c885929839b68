package notification

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

type Verb string

const (
	VerbObjectCreated       Verb = "object_created"
	VerbObjectAssigned      Verb = "object_assigned"
	VerbObjectSentForReview Verb = "object_sent_for_review"
	VerbDocumentsUploaded   Verb = "object_documents_uploaded"
	VerbObjectStatusChanged Verb = "object_status_changed"
	VerbBillCreated         Verb = "bill_created"
	VerbJournalCreated      Verb = "journal_created"
	VerbServicePurchased    Verb = "service_purchased"
	VerbServiceExpiry       Verb = "service_expiry_reminder"
)

type Category string

const (
	CategoryUserObject Category = "user_object"
	CategoryBills      Category = "bills"
	CategoryJournals   Category = "journals"
	CategoryService    Category = "service"
)

// Notification is the stored row. Only IsRead changes after insert.
type Notification struct {
	ID          int64
	RecipientID int64
	ActorID     *int64
	Verb        Verb
	Message     string
	Target      *TargetRef
	ObjectID    *int64
	Category    Category
	IsRead      bool
	CreatedAt   time.Time
}

type Person struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type ObjectSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// View is the representation returned by list calls and pushed over the
// realtime channel.
type View struct {
	ID            int64          `json:"id"`
	Actor         *Person        `json:"actor"`
	Verb          Verb           `json:"verb"`
	Message       string         `json:"message"`
	RelatedObject *ObjectSummary `json:"related_object"`
	Target        Target         `json:"target"`
	Category      Category       `json:"category"`
	IsRead        bool           `json:"is_read"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Frame wraps a view into the realtime wire shape.
func (v *View) Frame() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Data *View  `json:"data"`
	}{Type: "notification", Data: v})
}

type ListFilter struct {
	UnreadOnly bool
	Page       int
	Limit      int
}

// Offset saturates at math.MaxInt instead of wrapping negative.
func (f ListFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

type Page struct {
	Items       []*View `json:"items"`
	Total       int     `json:"total"`
	UnreadCount int     `json:"unread_count"`
}

// EmailRequest is a queued email, delivered asynchronously by the notifier.
type EmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
