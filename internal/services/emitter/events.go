package emitter

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/NordCoder/safecode-crm/internal/domain/billing"
	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/domain/purchase"
	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/NordCoder/safecode-crm/internal/domain/workobject"
	"github.com/NordCoder/safecode-crm/internal/obs"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ObjectCreated tells every active administrator about a new work object.
func (e *Emitter) ObjectCreated(ctx context.Context, obj *workobject.WorkObject) {
	ctx, span := e.start(ctx, "object_created", attribute.Int64("object.id", obj.ID))
	defer span.End()

	creator := e.activeUser(ctx, obj.OwnerID)
	set := newRecipientSet()
	for _, a := range e.administrators(ctx) {
		set.add(a.ID)
	}

	e.deliver(ctx, event{
		verb:     notification.VerbObjectCreated,
		category: notification.CategoryUserObject,
		message:  msgObjectCreated(displayName(creator, obj.OwnerID)),
		actor:    creator,
		object:   obj,
	}, set.ids)
}

// WorkerAssigned tells a newly assigned worker about the object.
func (e *Emitter) WorkerAssigned(ctx context.Context, obj *workobject.WorkObject, workerID int64) {
	ctx, span := e.start(ctx, "object_assigned",
		attribute.Int64("object.id", obj.ID), attribute.Int64("worker.id", workerID))
	defer span.End()

	if e.activeUser(ctx, workerID) == nil {
		return
	}
	e.deliver(ctx, event{
		verb:     notification.VerbObjectAssigned,
		category: notification.CategoryUserObject,
		message:  msgWorkerAssigned(obj.Name),
		actor:    e.activeUser(ctx, obj.OwnerID),
		object:   obj,
	}, []int64{workerID})
}

// SentForReview tells the owner which worker roles now review the object.
// Nothing is sent when no assigned worker holds a worker role.
func (e *Emitter) SentForReview(ctx context.Context, obj *workobject.WorkObject) {
	ctx, span := e.start(ctx, "object_sent_for_review", attribute.Int64("object.id", obj.ID))
	defer span.End()

	owner := e.activeUser(ctx, obj.OwnerID)
	if owner == nil {
		return
	}
	assignments, err := e.objects.ListAssignments(ctx, obj.ID)
	if err != nil {
		span.RecordError(err)
		obs.WithTrace(ctx, e.log).Error("list assignments", zap.Int64("object_id", obj.ID), zap.Error(err))
		return
	}

	roles := make(map[user.Role]struct{})
	for _, a := range assignments {
		w := e.activeUser(ctx, a.WorkerID)
		if w == nil {
			continue
		}
		for _, r := range w.WorkerRoles() {
			roles[r] = struct{}{}
		}
	}
	if len(roles) == 0 {
		return
	}
	sorted := make([]user.Role, 0, len(roles))
	for r := range roles {
		sorted = append(sorted, r)
	}
	slices.Sort(sorted)

	e.deliver(ctx, event{
		verb:     notification.VerbObjectSentForReview,
		category: notification.CategoryUserObject,
		message:  msgSentForReview(obj.Name, sorted),
		actor:    owner,
		object:   obj,
	}, []int64{owner.ID})
}

// DocumentsUploaded tells the owner, administrators and the other assigned
// workers that a worker finished their check. The uploader is never notified.
func (e *Emitter) DocumentsUploaded(ctx context.Context, obj *workobject.WorkObject, uploaderID int64) {
	ctx, span := e.start(ctx, "object_documents_uploaded",
		attribute.Int64("object.id", obj.ID), attribute.Int64("uploader.id", uploaderID))
	defer span.End()

	uploader := e.activeUser(ctx, uploaderID)
	var role user.Role
	if uploader != nil {
		role, _ = uploader.PrimaryWorkerRole()
	}

	set := newRecipientSet()
	if e.activeUser(ctx, obj.OwnerID) != nil {
		set.add(obj.OwnerID)
	}
	for _, a := range e.administrators(ctx) {
		set.add(a.ID)
	}
	assignments, err := e.objects.ListAssignments(ctx, obj.ID)
	if err != nil {
		span.RecordError(err)
		obs.WithTrace(ctx, e.log).Error("list assignments", zap.Int64("object_id", obj.ID), zap.Error(err))
	}
	for _, a := range assignments {
		if e.activeUser(ctx, a.WorkerID) != nil {
			set.add(a.WorkerID)
		}
	}
	set.exclude(uploaderID)

	e.deliver(ctx, event{
		verb:     notification.VerbDocumentsUploaded,
		category: notification.CategoryUserObject,
		message:  msgDocumentsUploaded(displayName(uploader, uploaderID), role, obj.Name),
		actor:    uploader,
		object:   obj,
	}, set.ids)
}

// BillCreated tells the object owner about a new bill unless they issued it.
func (e *Emitter) BillCreated(ctx context.Context, bill *billing.Bill) {
	ctx, span := e.start(ctx, "bill_created",
		attribute.Int64("bill.id", bill.ID), attribute.Int64("object.id", bill.ObjectID))
	defer span.End()

	obj := e.object(ctx, bill.ObjectID)
	if obj == nil || bill.CreatorID == obj.OwnerID {
		return
	}
	if e.activeUser(ctx, obj.OwnerID) == nil {
		return
	}
	creator := e.activeUser(ctx, bill.CreatorID)

	e.deliver(ctx, event{
		verb:     notification.VerbBillCreated,
		category: notification.CategoryBills,
		message:  msgBillCreated(displayName(creator, bill.CreatorID), obj.Name),
		actor:    creator,
		object:   obj,
		target: notification.BillRef{
			ID:         bill.ID,
			Comment:    bill.Comment,
			PriceCents: bill.PriceCents,
			Status:     string(bill.Status),
		},
	}, []int64{obj.OwnerID})
}

// JournalCreated tells the object owner about a new journal entry or act,
// worded differently when the owner wrote it.
func (e *Emitter) JournalCreated(ctx context.Context, j *billing.Journal) {
	ctx, span := e.start(ctx, "journal_created",
		attribute.Int64("journal.id", j.ID), attribute.Int64("object.id", j.ObjectID))
	defer span.End()

	obj := e.object(ctx, j.ObjectID)
	if obj == nil || e.activeUser(ctx, obj.OwnerID) == nil {
		return
	}
	creator := e.activeUser(ctx, j.CreatorID)
	self := j.CreatorID == obj.OwnerID

	e.deliver(ctx, event{
		verb:     notification.VerbJournalCreated,
		category: notification.CategoryJournals,
		message:  msgJournalCreated(displayName(creator, j.CreatorID), self, j.Type, obj.Name),
		actor:    creator,
		object:   obj,
		target:   notification.JournalRef{ID: j.ID, Type: string(j.Type), Date: j.Date},
	}, []int64{obj.OwnerID})
}

// ServicePurchased tells every active administrator about a purchase and
// queues an email to each of them.
func (e *Emitter) ServicePurchased(ctx context.Context, p *purchase.Purchase) {
	ctx, span := e.start(ctx, "service_purchased", attribute.Int64("purchase.id", p.ID))
	defer span.End()

	buyer := e.activeUser(ctx, p.UserID)
	admins := e.administrators(ctx)
	set := newRecipientSet()
	for _, a := range admins {
		set.add(a.ID)
	}

	e.deliver(ctx, event{
		verb:     notification.VerbServicePurchased,
		category: notification.CategoryService,
		message:  msgServicePurchased(displayName(buyer, p.UserID), p.ServiceTitle),
		actor:    buyer,
		target:   purchaseRef(p),
	}, set.ids)

	if buyer == nil {
		return
	}
	body := emailPurchaseBody(buyer, p.ServiceTitle)
	for _, a := range admins {
		e.email(ctx, a.Email, subjectPurchase, body)
	}
}

// StatusChanged tells the owner an administrator moved the object to a new
// status.
func (e *Emitter) StatusChanged(ctx context.Context, obj *workobject.WorkObject, from workobject.Status, actorID int64) {
	ctx, span := e.start(ctx, "object_status_changed",
		attribute.Int64("object.id", obj.ID), attribute.String("status.to", string(obj.Status)))
	defer span.End()

	if from == obj.Status || e.activeUser(ctx, obj.OwnerID) == nil {
		return
	}
	e.deliver(ctx, event{
		verb:     notification.VerbObjectStatusChanged,
		category: notification.CategoryUserObject,
		message:  msgStatusChanged(obj.Name, from, obj.Status),
		actor:    e.activeUser(ctx, actorID),
		object:   obj,
	}, []int64{obj.OwnerID})
}

var ErrNotDelivered = errors.New("reminder not stored")

// ServiceExpiring stores and pushes the expiry reminder for one purchase.
// Unlike the mutation-driven events it reports failure so the job can count it.
func (e *Emitter) ServiceExpiring(ctx context.Context, p *purchase.Purchase, daysLeft int) error {
	ctx, span := e.start(ctx, "service_expiry_reminder",
		attribute.Int64("purchase.id", p.ID), attribute.Int("days_left", daysLeft))
	defer span.End()

	if e.activeUser(ctx, p.UserID) == nil {
		return fmt.Errorf("%w: purchaser %d inactive", ErrNotDelivered, p.UserID)
	}
	stored := e.deliver(ctx, event{
		verb:     notification.VerbServiceExpiry,
		category: notification.CategoryService,
		message:  msgServiceExpiring(p.ServiceTitle, daysLeft),
		target:   purchaseRef(p),
	}, []int64{p.UserID})
	if stored == 0 {
		span.RecordError(ErrNotDelivered)
		return fmt.Errorf("%w: purchase %d", ErrNotDelivered, p.ID)
	}
	return nil
}

func (e *Emitter) object(ctx context.Context, id int64) *workobject.WorkObject {
	obj, err := e.objects.GetByID(ctx, id)
	if err != nil {
		obs.WithTrace(ctx, e.log).Error("load work object", zap.Int64("object_id", id), zap.Error(err))
		return nil
	}
	return obj
}

func purchaseRef(p *purchase.Purchase) notification.PurchaseRef {
	return notification.PurchaseRef{ID: p.ID, ServiceTitle: p.ServiceTitle, FinishedDate: p.FinishedDate}
}
