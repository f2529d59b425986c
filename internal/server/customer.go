package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
)

func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerdomain.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "customer.create", "customer", resp.ID.String(), map[string]any{
		"name":  resp.Name,
		"email": resp.Email,
	})

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pageQuery
		Name  string `form:"name"`
		Email string `form:"email"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	createdFrom, createdTo, err := timeRange(c, "created")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		Pagination:  query.pagination(),
		Name:        strings.TrimSpace(query.Name),
		Email:       strings.TrimSpace(query.Email),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	resp, err := s.customerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) CreateCustomerSite(c *gin.Context) {
	var req customerdomain.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.CreateSite(c.Request.Context(), customerdomain.CreateSiteRequest{
		CustomerID: strings.TrimSpace(c.Param("id")),
		Name:       strings.TrimSpace(req.Name),
		Address:    strings.TrimSpace(req.Address),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "customer_site.create", "customer_site", resp.ID.String(), map[string]any{
		"customer_id": resp.CustomerID.String(),
		"name":        resp.Name,
	})

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListCustomerSites(c *gin.Context) {
	resp, err := s.customerSvc.ListSites(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

// audit records handler-level actions for services that do not write their own audit trail.
func (s *Server) audit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	var actor *string
	if id := actorID(c); id > 0 {
		formatted := strconv.FormatInt(id, 10)
		actor = &formatted
	}
	_ = s.auditSvc.AuditLog(c.Request.Context(), auditdomain.ActorTypeUser, actor, action, targetType, &targetID, metadata)
}
