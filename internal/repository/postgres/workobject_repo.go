package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/safecode-crm/internal/domain/workobject"
	"github.com/jackc/pgx/v5"
)

var _ workobject.Repo = (*WorkObjectRepo)(nil)

type WorkObjectRepo struct{ db *DB }

func NewWorkObjectRepo(db *DB) *WorkObjectRepo { return &WorkObjectRepo{db: db} }

const (
	qObjectInsert = `
INSERT INTO work_objects (owner_id, name, address, status)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at;`

	qObjectByID = `
SELECT id, owner_id, name, address, status, created_at, updated_at
FROM work_objects
WHERE id = $1;`

	qObjectUpdateStatus = `
UPDATE work_objects
SET status = $2, updated_at = now()
WHERE id = $1;`

	qAssignmentInsert = `
INSERT INTO work_object_workers (object_id, user_id)
VALUES ($1, $2)
ON CONFLICT (object_id, user_id) DO NOTHING
RETURNING id, is_finished, created_at;`

	qAssignmentsByObject = `
SELECT id, object_id, user_id, is_finished, created_at
FROM work_object_workers
WHERE object_id = $1
ORDER BY id;`

	qAssignmentFinish = `
UPDATE work_object_workers
SET is_finished = TRUE
WHERE object_id = $1 AND user_id = $2;`

	qDocumentInsert = `
INSERT INTO work_object_documents (object_id, user_id, file_name)
VALUES ($1, $2, $3)
RETURNING id, created_at;`
)

func (r *WorkObjectRepo) Create(ctx context.Context, o *workobject.WorkObject) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qObjectInsert,
		o.OwnerID, o.Name, o.Address, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return mapErr("work object insert", err)
	}
	return nil
}

func (r *WorkObjectRepo) GetByID(ctx context.Context, id int64) (*workobject.WorkObject, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		o      workobject.WorkObject
		status string
	)
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qObjectByID, id).Scan(
		&o.ID, &o.OwnerID, &o.Name, &o.Address, &status, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, mapErr("work object by id", err)
	}
	o.Status = workobject.Status(status)
	return &o, nil
}

func (r *WorkObjectRepo) UpdateStatus(ctx context.Context, id int64, status workobject.Status) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qObjectUpdateStatus, id, string(status))
	if err != nil {
		return mapErr("work object status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddAssignment reports created=false when the worker is already assigned.
func (r *WorkObjectRepo) AddAssignment(ctx context.Context, a *workobject.Assignment) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.execQueryer(ctx).QueryRow(ctx, qAssignmentInsert, a.ObjectID, a.WorkerID).
		Scan(&a.ID, &a.IsFinished, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapErr("assignment insert", err)
	}
	return true, nil
}

func (r *WorkObjectRepo) ListAssignments(ctx context.Context, objectID int64) ([]*workobject.Assignment, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qAssignmentsByObject, objectID)
	if err != nil {
		return nil, mapErr("assignments by object", err)
	}
	defer rows.Close()

	var out []*workobject.Assignment
	for rows.Next() {
		var a workobject.Assignment
		if err := rows.Scan(&a.ID, &a.ObjectID, &a.WorkerID, &a.IsFinished, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *WorkObjectRepo) FinishAssignment(ctx context.Context, objectID, workerID int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qAssignmentFinish, objectID, workerID); err != nil {
		return mapErr("assignment finish", err)
	}
	return nil
}

func (r *WorkObjectRepo) AddDocument(ctx context.Context, d *workobject.Document) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qDocumentInsert, d.ObjectID, d.UserID, d.FileName).
		Scan(&d.ID, &d.CreatedAt); err != nil {
		return mapErr("document insert", err)
	}
	return nil
}
