package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/jackc/pgx/v5"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct {
	db *DB

	// betweenReads runs after the counts query; tests use it to race a writer.
	betweenReads func()
}

func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications (recipient_id, actor_id, verb, message, target_type, target_id, object_id, category)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, is_read, created_at;`

	qNotifMarkRead = `
UPDATE notifications
SET is_read = TRUE
WHERE id = $1 AND recipient_id = $2;`

	// Targets are weak references: a deleted bill, journal or purchase simply
	// yields NULL columns here.
	qNotifViewSelect = `
SELECT n.id, n.verb, n.message, n.category, n.is_read, n.created_at,
       a.id, a.first_name, a.last_name, a.email,
       o.id, o.name,
       b.id, b.comment, b.price_cents, b.status,
       j.id, j.type, j.date,
       p.id, s.title, p.finished_date
FROM notifications n
LEFT JOIN users a ON a.id = n.actor_id
LEFT JOIN work_objects o ON o.id = n.object_id
LEFT JOIN bills b ON n.target_type = 'bill' AND b.id = n.target_id
LEFT JOIN journals j ON n.target_type = 'journal' AND j.id = n.target_id
LEFT JOIN purchased_services p ON n.target_type = 'purchase' AND p.id = n.target_id
LEFT JOIN services s ON s.id = p.service_id
`

	qNotifGet = qNotifViewSelect + `
WHERE n.id = $1 AND n.recipient_id = $2;`

	qNotifList = qNotifViewSelect + `
WHERE n.recipient_id = $1
  AND ($2::bool = FALSE OR NOT n.is_read)
ORDER BY n.created_at DESC, n.id DESC
LIMIT $3 OFFSET $4;`

	qNotifCounts = `
SELECT count(*) FILTER (WHERE $2::bool = FALSE OR NOT is_read),
       count(*) FILTER (WHERE NOT is_read)
FROM notifications
WHERE recipient_id = $1;`
)

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var targetType *string
	var targetID *int64
	if n.Target != nil {
		kind := string(n.Target.Kind)
		id := n.Target.ID
		targetType, targetID = &kind, &id
	}

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifInsert,
		n.RecipientID,
		n.ActorID,
		string(n.Verb),
		n.Message,
		targetType,
		targetID,
		n.ObjectID,
		string(n.Category),
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt); err != nil {
		return mapErr("insert notification", err)
	}
	return nil
}

func (r *NotificationRepo) Get(ctx context.Context, id, recipientID int64) (*notification.View, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	v, err := scanView(r.db.execQueryer(ctx).QueryRow(ctx, qNotifGet, id, recipientID))
	if err != nil {
		return nil, mapErr("get notification", err)
	}
	return v, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id, recipientID int64) (*notification.View, error) {
	qctx, cancel := r.db.withTimeout(ctx)
	tag, err := r.db.execQueryer(qctx).Exec(qctx, qNotifMarkRead, id, recipientID)
	cancel()
	if err != nil {
		return nil, mapErr("mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id, recipientID)
}

// ListForRecipient reads the counts and the page from one REPEATABLE READ
// snapshot so total and unread_count always agree with items. Inside an
// ambient transaction it uses that transaction instead.
func (r *NotificationRepo) ListForRecipient(ctx context.Context, recipientID int64, f notification.ListFilter) (*notification.Page, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if tx := txFrom(ctx); tx != nil {
		return r.list(ctx, tx, recipientID, f)
	}

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, mapErr("begin list snapshot", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	page, err := r.list(ctx, tx, recipientID, f)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapErr("commit list snapshot", err)
	}
	return page, nil
}

func (r *NotificationRepo) list(ctx context.Context, eq execQueryer, recipientID int64, f notification.ListFilter) (*notification.Page, error) {
	page := &notification.Page{Items: make([]*notification.View, 0, f.Limit)}
	if err := eq.QueryRow(ctx, qNotifCounts, recipientID, f.UnreadOnly).
		Scan(&page.Total, &page.UnreadCount); err != nil {
		return nil, mapErr("count notifications", err)
	}
	if r.betweenReads != nil {
		r.betweenReads()
	}

	rows, err := eq.Query(ctx, qNotifList, recipientID, f.UnreadOnly, f.Limit, f.Offset())
	if err != nil {
		return nil, mapErr("query notifications", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		page.Items = append(page.Items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return page, nil
}

func scanView(row pgx.Row) (*notification.View, error) {
	var (
		v        notification.View
		verb     string
		category string

		actorID                 *int64
		actorFirst, actorLast   *string
		actorEmail              *string
		objID                   *int64
		objName                 *string
		billID                  *int64
		billComment, billStatus *string
		billPrice               *int64
		journalID               *int64
		journalType             *string
		journalDate             *time.Time
		purchaseID              *int64
		serviceTitle            *string
		purchaseFinished        *time.Time
	)
	if err := row.Scan(
		&v.ID, &verb, &v.Message, &category, &v.IsRead, &v.CreatedAt,
		&actorID, &actorFirst, &actorLast, &actorEmail,
		&objID, &objName,
		&billID, &billComment, &billPrice, &billStatus,
		&journalID, &journalType, &journalDate,
		&purchaseID, &serviceTitle, &purchaseFinished,
	); err != nil {
		return nil, err
	}
	v.Verb = notification.Verb(verb)
	v.Category = notification.Category(category)

	if actorID != nil {
		v.Actor = &notification.Person{
			ID:        *actorID,
			FirstName: deref(actorFirst),
			LastName:  deref(actorLast),
			Email:     deref(actorEmail),
		}
	}
	if objID != nil {
		v.RelatedObject = &notification.ObjectSummary{ID: *objID, Name: deref(objName)}
	}

	switch {
	case billID != nil:
		v.Target = notification.BillRef{
			ID:         *billID,
			Comment:    deref(billComment),
			PriceCents: derefInt(billPrice),
			Status:     deref(billStatus),
		}
	case journalID != nil:
		j := notification.JournalRef{ID: *journalID, Type: deref(journalType)}
		if journalDate != nil {
			j.Date = *journalDate
		}
		v.Target = j
	case purchaseID != nil:
		p := notification.PurchaseRef{ID: *purchaseID, ServiceTitle: deref(serviceTitle)}
		if purchaseFinished != nil {
			p.FinishedDate = *purchaseFinished
		}
		v.Target = p
	}
	return &v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}
