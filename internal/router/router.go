package router

import (
	"net/http"

	"gigwallet/config"
	"gigwallet/internal/cache"
	"gigwallet/internal/handler"
	"gigwallet/internal/metrics"
	"gigwallet/internal/middleware"
	"gigwallet/internal/repository"
	"gigwallet/internal/service"
	"gigwallet/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the process-wide collaborators built in main.
type Deps struct {
	Metrics    *metrics.Metrics
	Cache      cache.Store
	Hub        *ws.Hub
	Reconciler *service.Reconciler
}

func Setup(cfg *config.Config, db *gorm.DB, deps Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryStore()
	}
	if deps.Hub == nil {
		deps.Hub = ws.NewHub()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(deps.Metrics))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	bidRepo := repository.NewBidRepository(db)

	// Services
	walletSvc := service.NewWalletService(db, service.WalletConfig{
		DefaultCurrency: cfg.Ledger.DefaultCurrency,
		TxTimeout:       cfg.Ledger.TxTimeout,
	}, deps.Metrics)
	notifSvc := service.NewNotificationService(deps.Hub)
	escrowSvc := service.NewEscrowService(db, walletSvc, userRepo, projectRepo, bidRepo, notifSvc, service.EscrowConfig{
		FeePercent: cfg.Ledger.PlatformFeePercent,
		TxTimeout:  cfg.Ledger.TxTimeout,
	}, deps.Metrics)
	if deps.Reconciler == nil {
		deps.Reconciler = service.NewReconciler(db, cfg.Reconcile.BatchSize, cfg.Ledger.TxTimeout, deps.Metrics)
	}

	// Handlers
	walletHandler := handler.NewWalletHandler(walletSvc)
	escrowHandler := handler.NewEscrowHandler(escrowSvc)
	adminHandler := handler.NewAdminHandler(deps.Reconciler)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			log.WithError(err).Warn("health check: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	r.GET("/ws/wallet", ws.UpgradeWalletWS(&cfg.JWT, deps.Hub))

	limiter := middleware.NewRateLimiter(deps.Cache, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(&cfg.JWT), middleware.RateLimit(limiter), middleware.ActiveAccount(userRepo))
	{
		me := api.Group("/me/wallet")
		me.GET("", walletHandler.GetWallet)
		me.GET("/transactions", walletHandler.ListTransactions)
		me.POST("/deposit", walletHandler.Deposit)
		me.POST("/withdraw", walletHandler.Withdraw)

		payments := api.Group("/payments")
		payments.POST("/escrow", escrowHandler.Fund)
		payments.GET("/:id", escrowHandler.Get)
		payments.POST("/:id/release", escrowHandler.Release)
		payments.POST("/:id/refund", middleware.AdminRequired(), escrowHandler.Refund)

		api.GET("/projects/:id/payments", escrowHandler.ListProject)

		admin := api.Group("/admin", middleware.AdminRequired())
		admin.POST("/reconcile", adminHandler.Reconcile)
	}
	return r
}
