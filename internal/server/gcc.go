package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	"github.com/smallbiznis/gascustody/internal/observability/logger"
	"github.com/smallbiznis/gascustody/internal/ratelimit"
	"go.uber.org/zap"
)

const rateLimitReasonCustomerApproval = "customer_approval_rate"

func (s *Server) CreateGcc(c *gin.Context) {
	var req gccdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gccSvc.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) InitiateGcc(c *gin.Context) {
	var req gccdomain.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gccSvc.Initiate(c.Request.Context(), gccdomain.InitiateRequest{
		CustomerID:     strings.TrimSpace(req.CustomerID),
		CustomerSiteID: strings.TrimSpace(req.CustomerSiteID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) ListGccs(c *gin.Context) {
	var query struct {
		pageQuery
		CustomerID     string `form:"customer_id"`
		CustomerSiteID string `form:"customer_site_id"`
		Status         string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gccSvc.List(c.Request.Context(), gccdomain.ListRequest{
		Pagination:     query.pagination(),
		CustomerID:     strings.TrimSpace(query.CustomerID),
		CustomerSiteID: strings.TrimSpace(query.CustomerSiteID),
		Status:         strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetGcc(c *gin.Context) {
	resp, err := s.gccSvc.GetAggregate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) DeleteGcc(c *gin.Context) {
	if err := s.gccSvc.Delete(c.Request.Context(), actorID(c), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ApproveGccByAdmin(c *gin.Context) {
	resp, err := s.gccSvc.ApproveByAdmin(c.Request.Context(), actorID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) IssueGccApprovalToken(c *gin.Context) {
	resp, err := s.gccSvc.IssueCustomerApprovalToken(c.Request.Context(), actorID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

// ApproveGccByCustomer needs no staff credentials. The approval token is the
// only credential.
func (s *Server) ApproveGccByCustomer(c *gin.Context) {
	var req gccdomain.CustomerApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.GccID = strings.TrimSpace(c.Param("id"))
	req.ApprovalToken = approvalToken(c, req.ApprovalToken)

	resp, err := s.gccSvc.ApproveByCustomer(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GccCertificate(c *gin.Context) {
	doc, err := s.gccSvc.Certificate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondFile(c, doc.FileName, "application/pdf", doc.Content)
}

func (s *Server) ListGccAdminApprovals(c *gin.Context) {
	req, ok := bindApprovalQuery(c)
	if !ok {
		return
	}

	resp, err := s.gccSvc.ListAdminApprovals(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetGccAdminApproval(c *gin.Context) {
	resp, err := s.gccSvc.GetAdminApproval(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) ListGccCustomerApprovals(c *gin.Context) {
	req, ok := bindApprovalQuery(c)
	if !ok {
		return
	}

	resp, err := s.gccSvc.ListCustomerApprovals(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetGccCustomerApproval(c *gin.Context) {
	resp, err := s.gccSvc.GetCustomerApproval(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func bindApprovalQuery(c *gin.Context) (gccdomain.ListApprovalsRequest, bool) {
	var query struct {
		pageQuery
		GccID      string `form:"gcc_id"`
		CustomerID string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return gccdomain.ListApprovalsRequest{}, false
	}
	return gccdomain.ListApprovalsRequest{
		Pagination: query.pagination(),
		GccID:      strings.TrimSpace(query.GccID),
		CustomerID: strings.TrimSpace(query.CustomerID),
	}, true
}

// CustomerApprovalRateLimit throttles the public approval endpoint per GCC and client address.
func (s *Server) CustomerApprovalRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.gccGuard == nil || !s.gccGuard.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.gccGuard.AllowCustomerApproval(ctx, strings.TrimSpace(c.Param("id")), c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("customer approval rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			logger.FromContext(ctx).Warn("customer approval rate limit exceeded",
				zap.String("gcc_id", c.Param("id")),
				zap.String("endpoint", normalizeRateLimitEndpoint(c)),
			)
			s.obsMetrics.RecordApprovalDenied(ctx, rateLimitReasonCustomerApproval)

			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonCustomerApproval)
			AbortWithError(c, ratelimit.ErrRateLimited)
			return
		}
		c.Next()
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

const approvalTokenHeader = "X-Approval-Token"

// approvalToken picks the first token present in the body, the
// X-Approval-Token header, an Authorization bearer or the token query param.
func approvalToken(c *gin.Context, fromBody string) string {
	for _, candidate := range []string{
		fromBody,
		c.GetHeader(approvalTokenHeader),
		bearerToken(c.GetHeader("Authorization")),
		c.Query("token"),
	} {
		if token := strings.TrimSpace(candidate); token != "" {
			return token
		}
	}
	return ""
}
