package workobject

import "context"

type Reader interface {
	GetByID(ctx context.Context, id int64) (*WorkObject, error)
	ListAssignments(ctx context.Context, objectID int64) ([]*Assignment, error)
}

type Repo interface {
	Reader
	Create(ctx context.Context, o *WorkObject) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	AddAssignment(ctx context.Context, a *Assignment) (created bool, err error)
	FinishAssignment(ctx context.Context, objectID, workerID int64) error
	AddDocument(ctx context.Context, d *Document) error
}
