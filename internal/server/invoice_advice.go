package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	invoiceadvicedomain "github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
)

func (s *Server) CreateInvoiceAdvice(c *gin.Context) {
	var req invoiceadvicedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceAdviceSvc.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListInvoiceAdvices(c *gin.Context) {
	var query struct {
		pageQuery
		CustomerID     string `form:"customer_id"`
		CustomerSiteID string `form:"customer_site_id"`
		WithVat        string `form:"with_vat"`
		Status         string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	withVat, err := optional(query.WithVat, strconv.ParseBool)
	if err != nil {
		AbortWithError(c, newValidationError("with_vat", "invalid_with_vat", "invalid with_vat"))
		return
	}
	dateFrom, dateTo, err := timeRange(c, "date")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceAdviceSvc.List(c.Request.Context(), invoiceadvicedomain.ListRequest{
		Pagination:     query.pagination(),
		CustomerID:     strings.TrimSpace(query.CustomerID),
		CustomerSiteID: strings.TrimSpace(query.CustomerSiteID),
		WithVat:        withVat,
		Status:         strings.TrimSpace(query.Status),
		DateFrom:       dateFrom,
		DateTo:         dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetInvoiceAdvice(c *gin.Context) {
	resp, err := s.invoiceAdviceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) ListInvoiceAdviceItems(c *gin.Context) {
	resp, err := s.invoiceAdviceSvc.ListItems(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) ListInvoiceAdviceApprovals(c *gin.Context) {
	var query struct {
		pageQuery
		ApprovalFor string `form:"approval_for"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceAdviceSvc.ListApprovals(c.Request.Context(), invoiceadvicedomain.ListApprovalsRequest{
		Pagination:      query.pagination(),
		InvoiceAdviceID: strings.TrimSpace(c.Param("id")),
		ApprovalFor:     strings.TrimSpace(query.ApprovalFor),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetInvoiceAdviceApproval(c *gin.Context) {
	resp, err := s.invoiceAdviceSvc.GetApproval(c.Request.Context(), strings.TrimSpace(c.Param("approval_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) ApproveInvoiceAdvice(c *gin.Context) {
	var req invoiceadvicedomain.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceAdviceSvc.Approve(c.Request.Context(), actorID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) DeleteInvoiceAdvice(c *gin.Context) {
	if err := s.invoiceAdviceSvc.Delete(c.Request.Context(), actorID(c), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
