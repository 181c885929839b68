package billing

import "context"

type Repo interface {
	CreateBill(ctx context.Context, b *Bill) error
	CreateJournal(ctx context.Context, j *Journal) error
}
