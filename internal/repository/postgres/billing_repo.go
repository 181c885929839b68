package postgres

import (
	"context"

	"github.com/NordCoder/safecode-crm/internal/domain/billing"
)

var _ billing.Repo = (*BillingRepo)(nil)

type BillingRepo struct{ db *DB }

func NewBillingRepo(db *DB) *BillingRepo { return &BillingRepo{db: db} }

const (
	qBillInsert = `
INSERT INTO bills (object_id, user_id, comment, price_cents, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at;`

	qJournalInsert = `
INSERT INTO journals (object_id, user_id, type, date)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at;`
)

func (r *BillingRepo) CreateBill(ctx context.Context, b *billing.Bill) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qBillInsert,
		b.ObjectID, b.CreatorID, b.Comment, b.PriceCents, string(b.Status),
	).Scan(&b.ID, &b.CreatedAt); err != nil {
		return mapErr("bill insert", err)
	}
	return nil
}

func (r *BillingRepo) CreateJournal(ctx context.Context, j *billing.Journal) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qJournalInsert,
		j.ObjectID, j.CreatorID, string(j.Type), j.Date,
	).Scan(&j.ID, &j.CreatedAt); err != nil {
		return mapErr("journal insert", err)
	}
	return nil
}
