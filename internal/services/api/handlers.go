package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/billing"
	"github.com/NordCoder/safecode-crm/internal/domain/workobject"
	"github.com/NordCoder/safecode-crm/internal/services/crm"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type tokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	token, u, err := s.sessions.Login(c.Request.Context(), s.credentials, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "Bearer", "user": u})
}

type objectRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Address string `json:"address" binding:"max=1024"`
}

func (s *Server) createObject(c *gin.Context) {
	var req objectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	obj, err := s.crm.CreateWorkObject(c.Request.Context(), currentUser(c).ID, crm.NewObject{Name: req.Name, Address: req.Address})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, obj)
}

type workersRequest struct {
	WorkerIDs []int64 `json:"worker_ids" binding:"required,min=1,dive,gt=0"`
}

func (s *Server) assignWorkers(c *gin.Context) {
	objectID, ok := objectParam(c)
	if !ok {
		return
	}
	var req workersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	out, err := s.crm.AssignWorkers(c.Request.Context(), currentUser(c).ID, objectID, req.WorkerIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assignments": out})
}

type documentsRequest struct {
	FileNames []string `json:"file_names" binding:"required,min=1,dive,required,max=255"`
}

func (s *Server) uploadDocuments(c *gin.Context) {
	objectID, ok := objectParam(c)
	if !ok {
		return
	}
	var req documentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	out, err := s.crm.UploadDocuments(c.Request.Context(), currentUser(c).ID, objectID, req.FileNames)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"documents": out})
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=active pending completed cancelled on_hold"`
}

func (s *Server) changeStatus(c *gin.Context) {
	objectID, ok := objectParam(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	obj, err := s.crm.ChangeStatus(c.Request.Context(), currentUser(c).ID, objectID, workobject.Status(req.Status))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, obj)
}

type billRequest struct {
	Comment    string `json:"comment" binding:"max=2000"`
	PriceCents int64  `json:"price_cents" binding:"min=0"`
}

func (s *Server) createBill(c *gin.Context) {
	objectID, ok := objectParam(c)
	if !ok {
		return
	}
	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	b, err := s.crm.CreateBill(c.Request.Context(), currentUser(c).ID, objectID, crm.NewBill{Comment: req.Comment, PriceCents: req.PriceCents})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type journalRequest struct {
	Type string `json:"type" binding:"required,oneof=estimate act form"`
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

func (s *Server) createJournal(c *gin.Context) {
	objectID, ok := objectParam(c)
	if !ok {
		return
	}
	var req journalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	in := crm.NewJournal{Type: billing.JournalType(req.Type), Date: parseDate(req.Date)}
	j, err := s.crm.CreateJournal(c.Request.Context(), currentUser(c).ID, objectID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

type purchaseRequest struct {
	ServiceID    int64  `json:"service_id" binding:"required,gt=0"`
	StartDate    string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	FinishedDate string `json:"finished_date" binding:"omitempty,datetime=2006-01-02"`
}

func (s *Server) purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}

	p, err := s.crm.PurchaseService(c.Request.Context(), currentUser(c).ID, crm.NewPurchase{
		ServiceID:    req.ServiceID,
		StartDate:    parseDate(req.StartDate),
		FinishedDate: parseDate(req.FinishedDate),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func objectParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid object id"})
		return 0, false
	}
	return id, true
}

// parseDate expects input already checked by the datetime binding; empty
// yields the zero time.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, s)
	return t
}
