package purchase

import (
	"context"
	"time"
)

type Repo interface {
	GetService(ctx context.Context, id int64) (*Service, error)
	Create(ctx context.Context, p *Purchase) error
	// FetchExpiringOn returns active purchases whose finished date, taken as a
	// calendar date in loc, equals day.
	FetchExpiringOn(ctx context.Context, day time.Time, loc *time.Location) ([]*Purchase, error)
}
