package notification

import (
	"encoding/json"
	"time"
)

type TargetKind string

const (
	TargetBill     TargetKind = "bill"
	TargetJournal  TargetKind = "journal"
	TargetPurchase TargetKind = "purchase"
)

// TargetRef is the stored weak reference. It carries no foreign key.
type TargetRef struct {
	Kind TargetKind
	ID   int64
}

// Target is a resolved reference: BillRef, JournalRef or PurchaseRef.
type Target interface {
	Ref() TargetRef
	isTarget()
}

type BillRef struct {
	ID         int64  `json:"id"`
	Comment    string `json:"comment"`
	PriceCents int64  `json:"price_cents"`
	Status     string `json:"status"`
}

func (b BillRef) Ref() TargetRef { return TargetRef{Kind: TargetBill, ID: b.ID} }
func (BillRef) isTarget()        {}

func (b BillRef) MarshalJSON() ([]byte, error) {
	type plain BillRef
	return json.Marshal(struct {
		Type TargetKind `json:"type"`
		plain
	}{TargetBill, plain(b)})
}

type JournalRef struct {
	ID   int64     `json:"id"`
	Type string    `json:"journal_type"`
	Date time.Time `json:"date"`
}

func (j JournalRef) Ref() TargetRef { return TargetRef{Kind: TargetJournal, ID: j.ID} }
func (JournalRef) isTarget()        {}

func (j JournalRef) MarshalJSON() ([]byte, error) {
	type plain JournalRef
	return json.Marshal(struct {
		Type TargetKind `json:"type"`
		plain
	}{TargetJournal, plain(j)})
}

type PurchaseRef struct {
	ID           int64     `json:"id"`
	ServiceTitle string    `json:"service_title"`
	FinishedDate time.Time `json:"finished_date"`
}

func (p PurchaseRef) Ref() TargetRef { return TargetRef{Kind: TargetPurchase, ID: p.ID} }
func (PurchaseRef) isTarget()        {}

func (p PurchaseRef) MarshalJSON() ([]byte, error) {
	type plain PurchaseRef
	return json.Marshal(struct {
		Type TargetKind `json:"type"`
		plain
	}{TargetPurchase, plain(p)})
}
