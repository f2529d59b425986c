package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/gascustody/internal/audit"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	"github.com/smallbiznis/gascustody/internal/auth"
	authdomain "github.com/smallbiznis/gascustody/internal/auth/domain"
	"github.com/smallbiznis/gascustody/internal/authorization"
	"github.com/smallbiznis/gascustody/internal/config"
	"github.com/smallbiznis/gascustody/internal/customer"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	"github.com/smallbiznis/gascustody/internal/dailyvolume"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"github.com/smallbiznis/gascustody/internal/events"
	"github.com/smallbiznis/gascustody/internal/gcc"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	"github.com/smallbiznis/gascustody/internal/invoice"
	invoicedomain "github.com/smallbiznis/gascustody/internal/invoice/domain"
	"github.com/smallbiznis/gascustody/internal/invoiceadvice"
	invoiceadvicedomain "github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	"github.com/smallbiznis/gascustody/internal/lettertemplate"
	lettertemplatedomain "github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	"github.com/smallbiznis/gascustody/internal/ngmlaccount"
	ngmlaccountdomain "github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
	"github.com/smallbiznis/gascustody/internal/observability"
	obsmiddleware "github.com/smallbiznis/gascustody/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gascustody/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gascustody/internal/observability/tracing"
	"github.com/smallbiznis/gascustody/internal/providers"
	"github.com/smallbiznis/gascustody/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Services groups the domain modules the HTTP server depends on.
var Services = fx.Options(
	authorization.Module,
	audit.Module,
	events.Module,
	auth.Module,
	providers.Module,
	ratelimit.Module,
	customer.Module,
	dailyvolume.Module,
	gcc.Module,
	invoiceadvice.Module,
	invoice.Module,
	ngmlaccount.Module,
	lettertemplate.Module,
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
		s.RegisterPublicRoutes()
	}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine            *gin.Engine
	cfg               config.Config
	authsvc           authdomain.Service
	authzSvc          authorization.Service
	auditSvc          auditdomain.Service
	customerSvc       customerdomain.Service
	dailyVolumeSvc    dailyvolumedomain.Service
	gccSvc            gccdomain.Service
	invoiceAdviceSvc  invoiceadvicedomain.Service
	invoiceSvc        invoicedomain.Service
	ngmlAccountSvc    ngmlaccountdomain.Service
	letterTemplateSvc lettertemplatedomain.Service
	gccGuard          *ratelimit.GccGuard
	obsMetrics        *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	Authsvc           authdomain.Service
	AuthzSvc          authorization.Service
	AuditSvc          auditdomain.Service
	CustomerSvc       customerdomain.Service
	DailyVolumeSvc    dailyvolumedomain.Service
	GccSvc            gccdomain.Service
	InvoiceAdviceSvc  invoiceadvicedomain.Service
	InvoiceSvc        invoicedomain.Service
	NgmlAccountSvc    ngmlaccountdomain.Service
	LetterTemplateSvc lettertemplatedomain.Service
	GccGuard          *ratelimit.GccGuard  `optional:"true"`
	ObsMetrics        *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		authsvc:           p.Authsvc,
		authzSvc:          p.AuthzSvc,
		auditSvc:          p.AuditSvc,
		customerSvc:       p.CustomerSvc,
		dailyVolumeSvc:    p.DailyVolumeSvc,
		gccSvc:            p.GccSvc,
		invoiceAdviceSvc:  p.InvoiceAdviceSvc,
		invoiceSvc:        p.InvoiceSvc,
		ngmlAccountSvc:    p.NgmlAccountSvc,
		letterTemplateSvc: p.LetterTemplateSvc,
		gccGuard:          p.GccGuard,
		obsMetrics:        p.ObsMetrics,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Customers --------
	api.GET("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	api.POST("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomerByID)
	api.GET("/customers/:id/sites", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomerSites)
	api.POST("/customers/:id/sites", s.authorize(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomerSite)

	// -------- Volume ledger --------
	api.GET("/daily-volumes", s.authorize(authorization.ObjectDailyVolume, authorization.ActionView), s.ListDailyVolumes)
	api.POST("/daily-volumes", s.authorize(authorization.ObjectDailyVolume, authorization.ActionCreate), s.CreateDailyVolume)
	api.GET("/daily-volumes/:id", s.authorize(authorization.ObjectDailyVolume, authorization.ActionView), s.GetDailyVolume)
	api.PATCH("/daily-volumes/:id", s.authorize(authorization.ObjectDailyVolume, authorization.ActionUpdate), s.UpdateDailyVolume)
	api.DELETE("/daily-volumes/:id", s.authorize(authorization.ObjectDailyVolume, authorization.ActionDelete), s.DeleteDailyVolume)

	// -------- GCC --------
	api.GET("/gccs", s.authorize(authorization.ObjectGcc, authorization.ActionView), s.ListGccs)
	api.POST("/gccs", s.authorize(authorization.ObjectGcc, authorization.ActionCreate), s.CreateGcc)
	api.POST("/gccs/initiate", s.authorize(authorization.ObjectGcc, authorization.ActionView), s.InitiateGcc)
	api.GET("/gccs/:id", s.authorize(authorization.ObjectGcc, authorization.ActionView), s.GetGcc)
	api.DELETE("/gccs/:id", s.authorize(authorization.ObjectGcc, authorization.ActionDelete), s.DeleteGcc)
	api.POST("/gccs/:id/approve/admin", s.authorize(authorization.ObjectGcc, authorization.ActionGccApproveAdmin), s.ApproveGccByAdmin)
	api.POST("/gccs/:id/approval-token", s.authorize(authorization.ObjectGcc, authorization.ActionGccIssueApprovalToken), s.IssueGccApprovalToken)
	api.GET("/gccs/:id/certificate", s.authorize(authorization.ObjectGcc, authorization.ActionView), s.GccCertificate)

	api.GET("/gcc-approvals/admin", s.authorize(authorization.ObjectGccApproval, authorization.ActionView), s.ListGccAdminApprovals)
	api.GET("/gcc-approvals/admin/:id", s.authorize(authorization.ObjectGccApproval, authorization.ActionView), s.GetGccAdminApproval)
	api.GET("/gcc-approvals/customer", s.authorize(authorization.ObjectGccApproval, authorization.ActionView), s.ListGccCustomerApprovals)
	api.GET("/gcc-approvals/customer/:id", s.authorize(authorization.ObjectGccApproval, authorization.ActionView), s.GetGccCustomerApproval)

	// -------- Invoice advices --------
	api.GET("/invoice-advices", s.authorize(authorization.ObjectInvoiceAdvice, authorization.ActionView), s.ListInvoiceAdvices)
	api.POST("/invoice-advices", s.authorize(authorization.ObjectInvoiceAdvice, authorization.ActionCreate), s.CreateInvoiceAdvice)
	api.GET("/invoice-advices/:id", s.authorize(authorization.ObjectInvoiceAdvice, authorization.ActionView), s.GetInvoiceAdvice)
	api.DELETE("/invoice-advices/:id", s.authorize(authorization.ObjectInvoiceAdvice, authorization.ActionDelete), s.DeleteInvoiceAdvice)
	api.GET("/invoice-advices/:id/items", s.authorize(authorization.ObjectInvoiceAdvice, authorization.ActionView), s.ListInvoiceAdviceItems)
	api.GET("/invoice-advices/:id/approvals", s.authorize(authorization.ObjectInvoiceAdvice, authorization.ActionView), s.ListInvoiceAdviceApprovals)
	api.GET("/invoice-advices/:id/approvals/:approval_id", s.authorize(authorization.ObjectInvoiceAdvice, authorization.ActionView), s.GetInvoiceAdviceApproval)
	api.POST("/invoice-advices/:id/approve", s.authorize(authorization.ObjectInvoiceAdvice, authorization.ActionInvoiceAdviceApprove), s.ApproveInvoiceAdvice)

	// -------- Invoices --------
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionUpdate), s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionDelete), s.DeleteInvoice)
	api.POST("/invoices/:id/approve", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceApprove), s.ApproveInvoice)
	api.POST("/invoices/:id/pay", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoicePay), s.RecordInvoicePayment)
	api.POST("/invoices/:id/confirm-payment", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceConfirmPayment), s.ConfirmInvoicePayment)
	api.GET("/invoices/:id/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.RenderInvoice)

	// -------- Reference data --------
	api.GET("/ngml-accounts", s.authorize(authorization.ObjectNgmlAccount, authorization.ActionView), s.ListNgmlAccounts)
	api.POST("/ngml-accounts", s.authorize(authorization.ObjectNgmlAccount, authorization.ActionCreate), s.CreateNgmlAccount)
	api.GET("/ngml-accounts/:id", s.authorize(authorization.ObjectNgmlAccount, authorization.ActionView), s.GetNgmlAccount)
	api.PATCH("/ngml-accounts/:id", s.authorize(authorization.ObjectNgmlAccount, authorization.ActionUpdate), s.UpdateNgmlAccount)
	api.DELETE("/ngml-accounts/:id", s.authorize(authorization.ObjectNgmlAccount, authorization.ActionDelete), s.DeleteNgmlAccount)

	api.GET("/letter-templates", s.authorize(authorization.ObjectLetterTemplate, authorization.ActionView), s.ListLetterTemplates)
	api.POST("/letter-templates", s.authorize(authorization.ObjectLetterTemplate, authorization.ActionCreate), s.CreateLetterTemplate)
	api.GET("/letter-templates/:id", s.authorize(authorization.ObjectLetterTemplate, authorization.ActionView), s.GetLetterTemplate)
	api.PATCH("/letter-templates/:id", s.authorize(authorization.ObjectLetterTemplate, authorization.ActionUpdate), s.UpdateLetterTemplate)
	api.DELETE("/letter-templates/:id", s.authorize(authorization.ObjectLetterTemplate, authorization.ActionDelete), s.DeleteLetterTemplate)

	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) RegisterPublicRoutes() {
	public := s.engine.Group("/public")

	public.POST("/gccs/:id/approve", s.CustomerApprovalRateLimit(), s.ApproveGccByCustomer)
}
