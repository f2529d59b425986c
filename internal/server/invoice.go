package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/gascustody/internal/invoice/domain"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pageQuery
		Status        string `form:"status"`
		InvoiceNumber string `form:"invoice_number"`
		CustomerID    string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		Pagination:    query.pagination(),
		Status:        strings.TrimSpace(query.Status),
		InvoiceNumber: strings.TrimSpace(query.InvoiceNumber),
		CustomerID:    strings.TrimSpace(query.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.Update(c.Request.Context(), actorID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), actorID(c), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ApproveInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Approve(c.Request.Context(), actorID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) RecordInvoicePayment(c *gin.Context) {
	var req invoicedomain.PaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.RecordPayment(c.Request.Context(), actorID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) ConfirmInvoicePayment(c *gin.Context) {
	resp, err := s.invoiceSvc.ConfirmPayment(c.Request.Context(), actorID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) RenderInvoice(c *gin.Context) {
	doc, err := s.invoiceSvc.Render(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondFile(c, doc.FileName, "application/pdf", doc.Content)
}
