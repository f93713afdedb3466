package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/audit"
	auditdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/budget"
	budgetdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/config"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/expense"
	expensedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice"
	invoicedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment"
	paymentdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	paymentwebhook "github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/webhook"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(
		newSnowflakeNode,
		newEngine,
	),
	audit.Module,
	invoice.Module,
	payment.Module,
	budget.Module,
	expense.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(cors.Default())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine     *gin.Engine
	Cfg        config.Config
	Policy     *config.BillingPolicyHolder
	DB         *gorm.DB
	Log        *zap.Logger
	InvoiceSvc invoicedomain.Service
	PaymentSvc paymentdomain.Service
	WebhookSvc *paymentwebhook.Service
	BudgetSvc  budgetdomain.Service
	ExpenseSvc expensedomain.Service
	AuditSvc   auditdomain.Service
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	policy     *config.BillingPolicyHolder
	db         *gorm.DB
	log        *zap.Logger
	invoiceSvc invoicedomain.Service
	paymentSvc paymentdomain.Service
	webhookSvc *paymentwebhook.Service
	budgetSvc  budgetdomain.Service
	expenseSvc expensedomain.Service
	auditSvc   auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Engine,
		cfg:        p.Cfg,
		policy:     p.Policy,
		db:         p.DB,
		log:        p.Log.Named("server"),
		invoiceSvc: p.InvoiceSvc,
		paymentSvc: p.PaymentSvc,
		webhookSvc: p.WebhookSvc,
		budgetSvc:  p.BudgetSvc,
		expenseSvc: p.ExpenseSvc,
		auditSvc:   p.AuditSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.engine

	// Webhooks authenticate by signature, not tenant header.
	r.POST("/api/webhooks/stripe", s.HandleGatewayWebhook)

	api := r.Group("/api", TenantContext())

	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoiceLineItems)
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.POST("/invoices/:id/cancel", s.CancelInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.POST("/invoices/:id/restore", s.RestoreInvoice)
	api.GET("/invoices/:id/payments", s.ListInvoicePayments)
	api.POST("/invoices/:id/payments", s.RecordInvoicePayment)
	api.POST("/invoices/:id/checkout-sessions", s.CreateCheckoutSessionPayment)

	api.GET("/payments", s.ListPayments)
	api.POST("/payments", s.RecordPayment)
	api.GET("/payments/:id", s.GetPaymentByID)
	api.PATCH("/payments/:id", s.UpdatePayment)
	api.DELETE("/payments/:id", s.DeletePayment)
	api.POST("/payments/:id/review", s.StartPaymentReview)
	api.POST("/payments/:id/approve", s.ApprovePayment)
	api.POST("/payments/:id/reject", s.RejectPayment)
	api.POST("/payments/:id/resubmit", s.ResubmitPayment)

	api.GET("/budget/categories", s.ListBudgetCategories)
	api.POST("/budget/categories", s.CreateBudgetCategory)
	api.PATCH("/budget/categories/:id", s.RenameBudgetCategory)
	api.DELETE("/budget/categories/:id", s.DeleteBudgetCategory)
	api.GET("/budget/:year", s.GetBudgetYear)
	api.GET("/budget/:year/audit", s.ListBudgetAudit)
	api.PUT("/budget/entries", s.UpsertBudgetEntries)
	api.POST("/budget/copy/:fromYear/:toYear", s.CopyBudgetYear)

	api.GET("/expenses", s.ListExpenses)
	api.POST("/expenses", s.CreateExpense)
	api.POST("/expenses/:id/paid", s.SettleExpense)
	api.PUT("/expenses/:id/category", s.CategorizeExpense)

	internal := r.Group("/internal", s.ServiceTokenRequired())
	internal.POST("/schedules/run", s.RunSchedules)
	internal.POST("/expenses/sync", s.SyncExpenses)
}
