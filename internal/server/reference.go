package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	lettertemplatedomain "github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	ngmlaccountdomain "github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
)

func (s *Server) CreateNgmlAccount(c *gin.Context) {
	var req ngmlaccountdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ngmlAccountSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "ngml_account.create", "ngml_account", resp.ID.String(), map[string]any{
		"bank_name":    resp.BankName,
		"account_name": resp.AccountName,
	})
	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListNgmlAccounts(c *gin.Context) {
	var query struct {
		pageQuery
		BankName      string `form:"bank_name"`
		BankAddress   string `form:"bank_address"`
		AccountName   string `form:"account_name"`
		AccountNumber string `form:"account_number"`
		SortCode      string `form:"sort_code"`
		TIN           string `form:"tin"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ngmlAccountSvc.List(c.Request.Context(), ngmlaccountdomain.ListRequest{
		Pagination: query.pagination(),
		ListFilter: ngmlaccountdomain.ListFilter{
			BankName:      strings.TrimSpace(query.BankName),
			BankAddress:   strings.TrimSpace(query.BankAddress),
			AccountName:   strings.TrimSpace(query.AccountName),
			AccountNumber: strings.TrimSpace(query.AccountNumber),
			SortCode:      strings.TrimSpace(query.SortCode),
			TIN:           strings.TrimSpace(query.TIN),
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetNgmlAccount(c *gin.Context) {
	resp, err := s.ngmlAccountSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) UpdateNgmlAccount(c *gin.Context) {
	var req ngmlaccountdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.ngmlAccountSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "ngml_account.update", "ngml_account", resp.ID.String(), nil)
	respondOK(c, resp)
}

func (s *Server) DeleteNgmlAccount(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.ngmlAccountSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "ngml_account.delete", "ngml_account", id, nil)
	c.Status(http.StatusNoContent)
}

func (s *Server) CreateLetterTemplate(c *gin.Context) {
	var req lettertemplatedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.letterTemplateSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "letter_template.create", "letter_template", resp.ID.String(), nil)
	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListLetterTemplates(c *gin.Context) {
	var query struct {
		pageQuery
		Letter string `form:"letter"`
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status, err := optional(query.Status, strconv.Atoi)
	if err != nil {
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}

	resp, err := s.letterTemplateSvc.List(c.Request.Context(), lettertemplatedomain.ListRequest{
		Pagination: query.pagination(),
		Letter:     strings.TrimSpace(query.Letter),
		Status:     status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetLetterTemplate(c *gin.Context) {
	resp, err := s.letterTemplateSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) UpdateLetterTemplate(c *gin.Context) {
	var req lettertemplatedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.letterTemplateSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "letter_template.update", "letter_template", resp.ID.String(), nil)
	respondOK(c, resp)
}

func (s *Server) DeleteLetterTemplate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.letterTemplateSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "letter_template.delete", "letter_template", id, nil)
	c.Status(http.StatusNoContent)
}
