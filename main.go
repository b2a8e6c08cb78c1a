package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvip/server/admin"
	apirest "github.com/tvip/server/api/rest"
	"github.com/tvip/server/audit"
	"github.com/tvip/server/cache"
	"github.com/tvip/server/config"
	dbadapter "github.com/tvip/server/db"
	mw "github.com/tvip/server/middleware"
	"github.com/tvip/server/model"
	"github.com/tvip/server/scheduler"
	"github.com/tvip/server/steam"
	"github.com/tvip/server/vip"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Steam.APIKey == "" {
		logger.Warn("steam.api_key is not set; display names will fall back to steam ids")
	}
	if cfg.Security.JWTSecret == "" {
		log.Fatal("security.jwt_secret must be set")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Session cache ----
	c, err := cache.New(cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Services ----
	registry := admin.NewRegistry(db)
	recorder := audit.NewRecorder(logger)
	vipSvc := vip.NewService(db, recorder, logger)
	logSvc := audit.NewLogService(db)
	authenticator := steam.NewAuthenticator(cfg.Steam.Realm, cfg.Steam.ReturnURL, cfg.Steam.APIKey, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker("expiry_report", time.Hour, func() {
		reportExpiry(db, logger)
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- Routes ----
	authH := apirest.NewAuthHandler(authenticator, registry, c, cfg.Security, cfg.Server.FrontendURL, logger)
	vipH := apirest.NewVipHandler(vipSvc)
	logsH := apirest.NewLogsHandler(logSvc, registry)
	adminH := apirest.NewAdminHandler(db, logger)

	r.GET("/auth/steam", authH.SteamLogin)
	r.GET("/auth/steam/return", authH.SteamReturn)

	api := r.Group("/api")
	{
		// Public: anyone may see who currently holds VIP.
		api.GET("/vips", vipH.List)

		authed := api.Group("", mw.Auth(cfg.Security, c))
		authed.GET("/me", authH.Me)
		authed.GET("/isAdmin", authH.AdminStatus)
		authed.POST("/auth/logout", authH.Logout)
		authed.GET("/vip-logs", logsH.List)

		adminOnly := api.Group("", mw.Auth(cfg.Security, c), mw.RequireAdmin(registry, logger))
		adminOnly.POST("/vips", vipH.Create)
		adminOnly.PUT("/vips/:playerid", vipH.Update)
		adminOnly.PUT("/vips/:playerid/extend", vipH.Extend)
		adminOnly.DELETE("/vips/:playerid", vipH.Delete)

		metricsG := api.Group("/admin",
			mw.IPWhitelist(cfg.Security.AdminIPWhitelist),
			mw.Auth(cfg.Security, c),
			mw.RequireAdmin(registry, logger))
		metricsG.GET("/metrics", adminH.Metrics)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// reportExpiry logs active/expired grant counts. Observational only: expiry
// is a computed predicate, so no rows change and no audit entries are
// written here.
func reportExpiry(db *gorm.DB, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	var active, expired int64
	if err := db.WithContext(ctx).Model(&model.VipGrant{}).
		Where("expires_at > ?", now).Count(&active).Error; err != nil {
		logger.Error("expiry report failed", zap.Error(err))
		return
	}
	if err := db.WithContext(ctx).Model(&model.VipGrant{}).
		Where("expires_at <= ?", now).Count(&expired).Error; err != nil {
		logger.Error("expiry report failed", zap.Error(err))
		return
	}
	logger.Info("vip expiry report",
		zap.Int64("active", active),
		zap.Int64("expired", expired),
	)
}
