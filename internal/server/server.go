package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/authorization"
	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/file"
	filedomain "github.com/lumenis/lumenis/internal/file/domain"
	"github.com/lumenis/lumenis/internal/finance"
	financedomain "github.com/lumenis/lumenis/internal/finance/domain"
	"github.com/lumenis/lumenis/internal/identity"
	identitydomain "github.com/lumenis/lumenis/internal/identity/domain"
	"github.com/lumenis/lumenis/internal/migration"
	"github.com/lumenis/lumenis/internal/observability"
	obslogger "github.com/lumenis/lumenis/internal/observability/logger"
	obsmetrics "github.com/lumenis/lumenis/internal/observability/metrics"
	"github.com/lumenis/lumenis/internal/providers/email"
	paymentprovider "github.com/lumenis/lumenis/internal/providers/payment"
	"github.com/lumenis/lumenis/internal/ratelimit"
	"github.com/lumenis/lumenis/internal/storageplan"
	plandomain "github.com/lumenis/lumenis/internal/storageplan/domain"
	"github.com/lumenis/lumenis/internal/storagequota"
	quotadomain "github.com/lumenis/lumenis/internal/storagequota/domain"
	"github.com/lumenis/lumenis/internal/treasury"
	treasurydomain "github.com/lumenis/lumenis/internal/treasury/domain"
	"github.com/lumenis/lumenis/internal/wallet"
	walletdomain "github.com/lumenis/lumenis/internal/wallet/domain"
	"github.com/lumenis/lumenis/pkg/db"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	clock.Module,
	db.Module,
	migration.Module,
	fx.Provide(registerGin),
	authorization.Module,
	identity.Module,
	wallet.Module,
	storageplan.Module,
	storagequota.Module,
	finance.Module,
	email.Module,
	paymentprovider.Module,
	treasury.Module,
	file.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           cfg.Environment != "production",
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	genID       *snowflake.Node
	identitySvc identitydomain.Service
	authzSvc    authorization.Service
	walletSvc   walletdomain.Service
	planSvc     plandomain.Service
	quotaSvc    quotadomain.Service
	financeSvc  financedomain.Service
	treasurySvc treasurydomain.Service
	fileSvc     filedomain.Service
	limiter     *ratelimit.TokenBucket
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	GenID       *snowflake.Node
	IdentitySvc identitydomain.Service
	AuthzSvc    authorization.Service
	WalletSvc   walletdomain.Service
	PlanSvc     plandomain.Service
	QuotaSvc    quotadomain.Service
	FinanceSvc  financedomain.Service
	TreasurySvc treasurydomain.Service
	FileSvc     filedomain.Service
	Limiter     *ratelimit.TokenBucket `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		db:          p.DB,
		genID:       p.GenID,
		identitySvc: p.IdentitySvc,
		authzSvc:    p.AuthzSvc,
		walletSvc:   p.WalletSvc,
		planSvc:     p.PlanSvc,
		quotaSvc:    p.QuotaSvc,
		financeSvc:  p.FinanceSvc,
		treasurySvc: p.TreasurySvc,
		fileSvc:     p.FileSvc,
		limiter:     p.Limiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")
	auth.POST("/schools", s.createSchool)
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.authenticate())

	api.GET("/me", s.me)

	api.GET("/wallet",
		s.requirePermission(authorization.ObjectWallet, authorization.ActionWalletView),
		s.getWallet)
	api.POST("/wallet/fund",
		s.requirePermission(authorization.ObjectWallet, authorization.ActionWalletFund),
		s.rateLimit("fund", 0.2, 5),
		s.fundWallet)
	api.POST("/wallet/verify",
		s.requirePermission(authorization.ObjectWallet, authorization.ActionWalletFund),
		s.verifyPayment)

	api.GET("/plans", s.listPlans)

	api.POST("/storage/purchase",
		s.requirePermission(authorization.ObjectStorage, authorization.ActionStoragePurchase),
		s.purchaseStorage)
	api.GET("/storage/usage",
		s.requirePermission(authorization.ObjectStorage, authorization.ActionStorageView),
		s.storageUsage)

	api.POST("/files",
		s.requirePermission(authorization.ObjectFile, authorization.ActionFileUpload),
		s.uploadFile)
	api.GET("/files", s.listFiles)
	api.GET("/files/:id", s.getFile)
	api.DELETE("/files/:id",
		s.requirePermission(authorization.ObjectFile, authorization.ActionFileDelete),
		s.deleteFile)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.authenticate())

	plans := admin.Group("/plans",
		s.requirePermission(authorization.ObjectPlan, authorization.ActionPlanManage))
	plans.POST("", s.createPlan)
	plans.GET("", s.listAllPlans)
	plans.PATCH("/:id", s.updatePlan)
	plans.DELETE("/:id", s.archivePlan)

	admin.GET("/finance/summary",
		s.requirePermission(authorization.ObjectFinance, authorization.ActionFinanceView),
		s.financeSummary)

	admin.POST("/payouts",
		s.requirePermission(authorization.ObjectTreasury, authorization.ActionTreasuryPayout),
		s.rateLimit("payout", 0.1, 3),
		s.payOut)
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")
	hooks.POST("/transfers", s.transferWebhook)
}
