// Package crm holds the domain mutations that trigger notifications. Each
// mutation commits first and only then calls the matching emitter.
package crm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NordCoder/safecode-crm/internal/domain/billing"
	"github.com/NordCoder/safecode-crm/internal/domain/purchase"
	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/NordCoder/safecode-crm/internal/domain/workobject"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Events is the emitter surface the mutations call after commit.
type Events interface {
	ObjectCreated(ctx context.Context, obj *workobject.WorkObject)
	WorkerAssigned(ctx context.Context, obj *workobject.WorkObject, workerID int64)
	SentForReview(ctx context.Context, obj *workobject.WorkObject)
	DocumentsUploaded(ctx context.Context, obj *workobject.WorkObject, uploaderID int64)
	BillCreated(ctx context.Context, bill *billing.Bill)
	JournalCreated(ctx context.Context, j *billing.Journal)
	ServicePurchased(ctx context.Context, p *purchase.Purchase)
	StatusChanged(ctx context.Context, obj *workobject.WorkObject, from workobject.Status, actorID int64)
}

type Service struct {
	tx        Transactor
	users     user.Directory
	objects   workobject.Repo
	billing   billing.Repo
	purchases purchase.Repo
	events    Events
	clk       func() time.Time
	tr        trace.Tracer
}

func New(
	tx Transactor,
	users user.Directory,
	objects workobject.Repo,
	billingRepo billing.Repo,
	purchases purchase.Repo,
	events Events,
	clk func() time.Time,
) *Service {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		tx:        tx,
		users:     users,
		objects:   objects,
		billing:   billingRepo,
		purchases: purchases,
		events:    events,
		clk:       clk,
		tr:        otel.Tracer("services.crm"),
	}
}

const maxNameLen = 255

type NewObject struct {
	Name    string
	Address string
}

func (s *Service) CreateWorkObject(ctx context.Context, ownerID int64, in NewObject) (*workobject.WorkObject, error) {
	ctx, span := s.tr.Start(ctx, "crm.CreateWorkObject")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	fe := &FieldError{}
	if in.Name == "" {
		fe.add("name", "is required")
	} else if utf8.RuneCountInString(in.Name) > maxNameLen {
		fe.add("name", fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
	if err := fe.orNil(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetActive(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("%w: owner inactive", ErrForbidden)
	}

	obj := &workobject.WorkObject{
		OwnerID: ownerID,
		Name:    in.Name,
		Address: strings.TrimSpace(in.Address),
		Status:  workobject.StatusActive,
	}
	if err := s.objects.Create(ctx, obj); err != nil {
		return nil, fmt.Errorf("create work object: %w", err)
	}
	span.SetAttributes(attribute.Int64("object.id", obj.ID))

	s.events.ObjectCreated(ctx, obj)
	return obj, nil
}

// AssignWorkers moves the object to review and assigns the given workers.
// Already assigned workers are skipped and not notified again.
func (s *Service) AssignWorkers(ctx context.Context, actorID, objectID int64, workerIDs []int64) ([]*workobject.Assignment, error) {
	ctx, span := s.tr.Start(ctx, "crm.AssignWorkers", trace.WithAttributes(attribute.Int64("object.id", objectID)))
	defer span.End()

	if err := s.requireRole(ctx, actorID, user.RoleAdministrator); err != nil {
		return nil, err
	}
	if len(workerIDs) == 0 {
		return nil, invalid("worker_ids", "must not be empty")
	}
	for _, id := range workerIDs {
		w, err := s.users.GetActive(ctx, id)
		if err != nil || len(w.WorkerRoles()) == 0 {
			return nil, invalid("worker_ids", fmt.Sprintf("user %d is not an active worker", id))
		}
	}

	var (
		obj     *workobject.WorkObject
		created []*workobject.Assignment
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if obj, err = s.objects.GetByID(ctx, objectID); err != nil {
			return fmt.Errorf("get work object: %w", err)
		}
		if err := s.objects.UpdateStatus(ctx, objectID, workobject.StatusPending); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		obj.Status = workobject.StatusPending
		for _, id := range dedupe(workerIDs) {
			a := &workobject.Assignment{ObjectID: objectID, WorkerID: id}
			ok, err := s.objects.AddAssignment(ctx, a)
			if err != nil {
				return fmt.Errorf("assign worker %d: %w", id, err)
			}
			if ok {
				created = append(created, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range created {
		s.events.WorkerAssigned(ctx, obj, a.WorkerID)
	}
	if len(created) > 0 {
		s.events.SentForReview(ctx, obj)
	}
	return created, nil
}

// UploadDocuments records the files, marks the uploader's assignment finished
// and notifies once per batch.
func (s *Service) UploadDocuments(ctx context.Context, uploaderID, objectID int64, fileNames []string) ([]*workobject.Document, error) {
	ctx, span := s.tr.Start(ctx, "crm.UploadDocuments", trace.WithAttributes(attribute.Int64("object.id", objectID)))
	defer span.End()

	names := make([]string, 0, len(fileNames))
	for _, n := range fileNames {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, invalid("file_names", "must contain at least one file name")
	}

	obj, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("get work object: %w", err)
	}
	assigned, err := s.isAssigned(ctx, objectID, uploaderID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, fmt.Errorf("%w: user %d is not assigned to object %d", ErrForbidden, uploaderID, objectID)
	}

	docs := make([]*workobject.Document, 0, len(names))
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, n := range names {
			d := &workobject.Document{ObjectID: objectID, UserID: uploaderID, FileName: n}
			if err := s.objects.AddDocument(ctx, d); err != nil {
				return fmt.Errorf("add document: %w", err)
			}
			docs = append(docs, d)
		}
		return s.objects.FinishAssignment(ctx, objectID, uploaderID)
	})
	if err != nil {
		return nil, err
	}

	s.events.DocumentsUploaded(ctx, obj, uploaderID)
	return docs, nil
}

type NewBill struct {
	Comment    string
	PriceCents int64
}

func (s *Service) CreateBill(ctx context.Context, creatorID, objectID int64, in NewBill) (*billing.Bill, error) {
	ctx, span := s.tr.Start(ctx, "crm.CreateBill", trace.WithAttributes(attribute.Int64("object.id", objectID)))
	defer span.End()

	if in.PriceCents < 0 {
		return nil, invalid("price_cents", "must not be negative")
	}
	if _, err := s.accessibleObject(ctx, creatorID, objectID); err != nil {
		return nil, err
	}

	b := &billing.Bill{
		ObjectID:   objectID,
		CreatorID:  creatorID,
		Comment:    strings.TrimSpace(in.Comment),
		PriceCents: in.PriceCents,
		Status:     billing.BillPending,
	}
	if err := s.billing.CreateBill(ctx, b); err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}

	s.events.BillCreated(ctx, b)
	return b, nil
}

type NewJournal struct {
	Type billing.JournalType
	Date time.Time
}

func (s *Service) CreateJournal(ctx context.Context, creatorID, objectID int64, in NewJournal) (*billing.Journal, error) {
	ctx, span := s.tr.Start(ctx, "crm.CreateJournal", trace.WithAttributes(attribute.Int64("object.id", objectID)))
	defer span.End()

	if !in.Type.Valid() {
		return nil, invalid("type", "must be one of estimate, act, form")
	}
	if _, err := s.accessibleObject(ctx, creatorID, objectID); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = s.clk()
	}

	j := &billing.Journal{ObjectID: objectID, CreatorID: creatorID, Type: in.Type, Date: in.Date}
	if err := s.billing.CreateJournal(ctx, j); err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}

	s.events.JournalCreated(ctx, j)
	return j, nil
}

type NewPurchase struct {
	ServiceID    int64
	StartDate    time.Time
	FinishedDate time.Time
}

// PurchaseService records a purchase; the term defaults to purchase.DefaultTerm.
func (s *Service) PurchaseService(ctx context.Context, buyerID int64, in NewPurchase) (*purchase.Purchase, error) {
	ctx, span := s.tr.Start(ctx, "crm.PurchaseService", trace.WithAttributes(attribute.Int64("service.id", in.ServiceID)))
	defer span.End()

	if in.ServiceID <= 0 {
		return nil, invalid("service_id", "is required")
	}
	if in.StartDate.IsZero() {
		in.StartDate = s.clk()
	}
	if in.FinishedDate.IsZero() {
		in.FinishedDate = in.StartDate.Add(purchase.DefaultTerm)
	}
	if !in.FinishedDate.After(in.StartDate) {
		return nil, invalid("finished_date", "must be after start_date")
	}
	if _, err := s.users.GetActive(ctx, buyerID); err != nil {
		return nil, fmt.Errorf("%w: buyer inactive", ErrForbidden)
	}

	svc, err := s.purchases.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	p := &purchase.Purchase{
		UserID:       buyerID,
		ServiceID:    svc.ID,
		ServiceTitle: svc.Title,
		StartDate:    in.StartDate,
		FinishedDate: in.FinishedDate,
	}
	if err := s.purchases.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	s.events.ServicePurchased(ctx, p)
	return p, nil
}

// ChangeStatus is reserved to administrators. Setting the current status
// again is a no-op without a notification.
func (s *Service) ChangeStatus(ctx context.Context, actorID, objectID int64, to workobject.Status) (*workobject.WorkObject, error) {
	ctx, span := s.tr.Start(ctx, "crm.ChangeStatus", trace.WithAttributes(
		attribute.Int64("object.id", objectID), attribute.String("status.to", string(to))))
	defer span.End()

	if !to.Valid() {
		return nil, invalid("status", "unknown status")
	}
	if err := s.requireRole(ctx, actorID, user.RoleAdministrator); err != nil {
		return nil, err
	}

	var (
		obj  *workobject.WorkObject
		from workobject.Status
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if obj, err = s.objects.GetByID(ctx, objectID); err != nil {
			return fmt.Errorf("get work object: %w", err)
		}
		from = obj.Status
		if from == to {
			return nil
		}
		if err := s.objects.UpdateStatus(ctx, objectID, to); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		obj.Status = to
		obj.UpdatedAt = s.clk()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != to {
		s.events.StatusChanged(ctx, obj, from, actorID)
	}
	return obj, nil
}

func (s *Service) requireRole(ctx context.Context, userID int64, role user.Role) error {
	u, err := s.users.GetActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: user %d inactive", ErrForbidden, userID)
	}
	if !u.HasRole(role) {
		return fmt.Errorf("%w: %s role required", ErrForbidden, role)
	}
	return nil
}

// accessibleObject loads the object if the user owns it, administers or is
// assigned to it.
func (s *Service) accessibleObject(ctx context.Context, userID, objectID int64) (*workobject.WorkObject, error) {
	u, err := s.users.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %d inactive", ErrForbidden, userID)
	}
	obj, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("get work object: %w", err)
	}
	if obj.OwnerID == userID || u.HasRole(user.RoleAdministrator) {
		return obj, nil
	}
	assigned, err := s.isAssigned(ctx, objectID, userID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, fmt.Errorf("%w: no access to object %d", ErrForbidden, objectID)
	}
	return obj, nil
}

func (s *Service) isAssigned(ctx context.Context, objectID, userID int64) (bool, error) {
	as, err := s.objects.ListAssignments(ctx, objectID)
	if err != nil {
		return false, fmt.Errorf("list assignments: %w", err)
	}
	for _, a := range as {
		if a.WorkerID == userID {
			return true, nil
		}
	}
	return false, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
