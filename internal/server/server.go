package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/solvance/cashier-polar/internal/billable"
	"github.com/solvance/cashier-polar/internal/config"
	"github.com/solvance/cashier-polar/internal/observability"
	obsmiddleware "github.com/solvance/cashier-polar/internal/observability/logger"
	obsmetrics "github.com/solvance/cashier-polar/internal/observability/metrics"
	obstracing "github.com/solvance/cashier-polar/internal/observability/tracing"
	"github.com/solvance/cashier-polar/internal/polar"
	subscriptiondomain "github.com/solvance/cashier-polar/internal/subscription/domain"
	webhookservice "github.com/solvance/cashier-polar/internal/webhook/service"
	"github.com/solvance/cashier-polar/internal/webhook/signature"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
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

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	webhookCfg      *config.WebhookConfigHolder
	verifier        *signature.Verifier
	webhookSvc      *webhookservice.Service
	billableSvc     *billable.Service
	subscriptionSvc subscriptiondomain.Service
	polar           *polar.Client
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	WebhookCfg      *config.WebhookConfigHolder
	Verifier        *signature.Verifier
	WebhookSvc      *webhookservice.Service
	BillableSvc     *billable.Service
	SubscriptionSvc subscriptiondomain.Service
	Polar           *polar.Client
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		webhookCfg:      p.WebhookCfg,
		verifier:        p.Verifier,
		webhookSvc:      p.WebhookSvc,
		billableSvc:     p.BillableSvc,
		subscriptionSvc: p.SubscriptionSvc,
		polar:           p.Polar,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerWebhookRoutes binds the provider webhook endpoint. The path is
// read once at startup; the signing secret stays reloadable per delivery.
func (s *Server) registerWebhookRoutes() {
	path := s.webhookCfg.Get().Path
	if path == "" {
		path = "/webhooks/polar"
	}
	s.engine.POST(path, s.HandlePolarWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Products --------
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProductByID)

	// -------- Billables --------
	billables := api.Group("/billables/:type/:id")
	{
		billables.POST("/checkouts", s.CreateCheckout)
		billables.POST("/customer", s.GetOrCreateCustomer)
		billables.GET("/subscription", s.GetSubscription)
		billables.GET("/subscribed", s.GetSubscribed)
		billables.GET("/transactions", s.ListTransactions)
		billables.GET("/orders", s.ListOrders)
	}

	// -------- Subscriptions --------
	api.GET("/subscriptions/:id", s.GetSubscriptionByID)
	api.GET("/subscriptions/:id/items", s.ListSubscriptionItems)
	api.POST("/subscriptions/:id/cancel", s.CancelSubscription)
	api.POST("/subscriptions/:id/resume", s.ResumeSubscription)
	api.POST("/subscriptions/:id/revoke", s.RevokeSubscription)
	api.POST("/subscriptions/:id/change-plan", s.ChangeSubscriptionPlan)

	// -------- Orders --------
	api.GET("/orders/:id/invoice", s.GetOrderInvoice)
}
