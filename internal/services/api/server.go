// Package api is the JSON surface of the CRM: notification reads, token
// issue and the mutations that raise notifications.
package api

import (
	"context"

	"github.com/NordCoder/safecode-crm/internal/auth"
	"github.com/NordCoder/safecode-crm/internal/domain/billing"
	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/domain/purchase"
	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/NordCoder/safecode-crm/internal/domain/workobject"
	"github.com/NordCoder/safecode-crm/internal/obs"
	"github.com/NordCoder/safecode-crm/internal/services/crm"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Sessions interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
	Login(ctx context.Context, users auth.Credentials, email, password string) (string, *user.User, error)
}

// CRM is the subset of crm.Service the handlers drive.
type CRM interface {
	CreateWorkObject(ctx context.Context, ownerID int64, in crm.NewObject) (*workobject.WorkObject, error)
	AssignWorkers(ctx context.Context, actorID, objectID int64, workerIDs []int64) ([]*workobject.Assignment, error)
	UploadDocuments(ctx context.Context, uploaderID, objectID int64, fileNames []string) ([]*workobject.Document, error)
	ChangeStatus(ctx context.Context, actorID, objectID int64, to workobject.Status) (*workobject.WorkObject, error)
	CreateBill(ctx context.Context, creatorID, objectID int64, in crm.NewBill) (*billing.Bill, error)
	CreateJournal(ctx context.Context, creatorID, objectID int64, in crm.NewJournal) (*billing.Journal, error)
	PurchaseService(ctx context.Context, buyerID int64, in crm.NewPurchase) (*purchase.Purchase, error)
}

type Deps struct {
	Sessions      Sessions
	Credentials   auth.Credentials
	Notifications notification.Repo
	CRM           CRM
	Log           *zap.Logger
}

type Server struct {
	sessions      Sessions
	credentials   auth.Credentials
	notifications notification.Repo
	crm           CRM
	log           *zap.Logger
}

func NewServer(d Deps) *Server {
	useWireFieldNames()
	return &Server{
		sessions:      d.Sessions,
		credentials:   d.Credentials,
		notifications: d.Notifications,
		crm:           d.CRM,
		log:           obs.Component(d.Log, "api"),
	}
}

func (s *Server) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.POST("/auth/token", s.issueToken)

	authed := v1.Group("", RequireUser(s.sessions))
	authed.GET("/notifications", s.listNotifications)
	authed.POST("/notifications/:id/read", s.markRead)
	authed.PUT("/notifications/:id/read", s.markRead)

	authed.POST("/objects", s.createObject)
	authed.POST("/objects/:id/workers", s.assignWorkers)
	authed.POST("/objects/:id/documents", s.uploadDocuments)
	authed.PATCH("/objects/:id/status", s.changeStatus)
	authed.POST("/objects/:id/bills", s.createBill)
	authed.POST("/objects/:id/journals", s.createJournal)
	authed.POST("/purchases", s.purchase)
}
