package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/purchase"
)

var _ purchase.Repo = (*PurchaseRepo)(nil)

type PurchaseRepo struct{ db *DB }

func NewPurchaseRepo(db *DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

const (
	qServiceByID = `
SELECT id, title, price_cents
FROM services
WHERE id = $1;`

	qPurchaseInsert = `
INSERT INTO purchased_services (user_id, service_id, start_date, finished_date, is_active)
VALUES ($1, $2, $3, $4, TRUE)
RETURNING id, is_active;`

	qPurchasesExpiringOn = `
SELECT p.id, p.user_id, p.service_id, s.title, p.start_date, p.finished_date, p.is_active
FROM purchased_services p
JOIN services s ON s.id = p.service_id
WHERE p.is_active
  AND (p.finished_date AT TIME ZONE $2)::date = $1::date
ORDER BY p.id;`
)

func (r *PurchaseRepo) GetService(ctx context.Context, id int64) (*purchase.Service, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s purchase.Service
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qServiceByID, id).
		Scan(&s.ID, &s.Title, &s.PriceCents); err != nil {
		return nil, mapErr("service by id", err)
	}
	return &s, nil
}

func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qPurchaseInsert,
		p.UserID, p.ServiceID, p.StartDate, p.FinishedDate,
	).Scan(&p.ID, &p.IsActive); err != nil {
		return mapErr("purchase insert", err)
	}
	return nil
}

func (r *PurchaseRepo) FetchExpiringOn(ctx context.Context, day time.Time, loc *time.Location) ([]*purchase.Purchase, error) {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qPurchasesExpiringOn, day.Format(time.DateOnly), loc.String())
	if err != nil {
		return nil, mapErr("purchases expiring", err)
	}
	defer rows.Close()

	var out []*purchase.Purchase
	for rows.Next() {
		var p purchase.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.ServiceID, &p.ServiceTitle,
			&p.StartDate, &p.FinishedDate, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
