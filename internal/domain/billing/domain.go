package billing

import "time"

type BillStatus string

const (
	BillPending   BillStatus = "pending"
	BillPaid      BillStatus = "paid"
	BillCancelled BillStatus = "cancelled"
)

func (s BillStatus) Valid() bool {
	return s == BillPending || s == BillPaid || s == BillCancelled
}

// Bill is an invoice issued against a work object. Price is kept in minor units.
type Bill struct {
	ID         int64      `json:"id"`
	ObjectID   int64      `json:"object_id"`
	CreatorID  int64      `json:"creator_id"`
	Comment    string     `json:"comment"`
	PriceCents int64      `json:"price_cents"`
	Status     BillStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

type JournalType string

const (
	JournalEstimate JournalType = "estimate"
	JournalAct      JournalType = "act"
	JournalForm     JournalType = "form"
)

func (t JournalType) Valid() bool {
	return t == JournalEstimate || t == JournalAct || t == JournalForm
}

// Journal is a journal entry or act attached to a work object.
type Journal struct {
	ID        int64       `json:"id"`
	ObjectID  int64       `json:"object_id"`
	CreatorID int64       `json:"creator_id"`
	Type      JournalType `json:"type"`
	Date      time.Time   `json:"date"`
	CreatedAt time.Time   `json:"created_at"`
}
