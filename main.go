package main

import (
	"strings"
	"time"

	"travellog/auth"
	"travellog/config"
	"travellog/db"
	"travellog/handlers"
	"travellog/jobs"
	"travellog/locations"
	"travellog/logger"
	"travellog/metrics"
	"travellog/models"
	"travellog/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const mapConfigCacheTime = 3600

func main() {
	logger.Init(config.DEBUG_MODE)
	defer logger.Sync()

	db.Init()
	if err := db.CheckForeignKeys(db.Instance); err != nil {
		logger.L.Fatal("refusing to start", zap.Error(err))
	}
	if err := models.Init(); err != nil {
		logger.L.Fatal("migrating models", zap.Error(err))
	}
	if config.REVERSE_GEOCODE {
		handlers.Geocoder = locations.NewGeocoder(config.NOMINATIM_URL)
	}
	cleanup, err := jobs.StartCleanup(handlers.Views)
	if err != nil {
		logger.L.Fatal("scheduling cleanup", zap.String("schedule", config.CLEANUP_SCHEDULE), zap.Error(err))
	}
	defer cleanup.Stop()
	if err = metrics.RegisterViewCount(handlers.Views.Count); err != nil {
		logger.L.Fatal("registering metrics", zap.Error(err))
	}

	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter()
	if config.TLS_DOMAINS != "" {
		err = autotls.Run(router, strings.Split(config.TLS_DOMAINS, ",")...)
	} else {
		err = router.Run(config.BIND_ADDRESS)
	}
	logger.L.Fatal("server stopped", zap.Error(err))
}

func setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware())
	_ = router.SetTrustedProxies([]string{})
	if config.DEBUG_MODE {
		router.Use(utils.ErrorLogMiddleware)
	}
	allowOrigins := []string{"*"}
	if origins := config.AllowedOrigins(); len(origins) > 0 {
		allowOrigins = origins
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept-Language"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))

	cookieStore := cookie.NewStore([]byte(config.SESSION_KEY))
	cookieStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(auth.MaxAge().Seconds()),
		HttpOnly: true,
	})
	router.Use(sessions.Sessions(config.SESSION_COOKIE, cookieStore))
	if !config.DEBUG_MODE {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{"^/map/views/[^/]+/ws$"})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, individual end-points can override that
	// Custom Auth Router
	authRouter := &auth.Router{Base: router}
	// Sign in
	router.POST("/auth/signin", handlers.AuthSignIn)
	router.POST("/auth/callback", handlers.AuthCallback)
	authRouter.POST("/auth/signout", handlers.AuthSignOut)
	// User info handlers
	authRouter.GET("/user/status", handlers.UserStatus)
	authRouter.GET("/user/accounts", handlers.UserAccounts)
	authRouter.POST("/user/delete", handlers.UserDelete)
	// Travel log handlers
	authRouter.GET("/log/list", handlers.TravelLogList)
	authRouter.GET("/log/get", handlers.TravelLogGet)
	authRouter.POST("/log/create", handlers.TravelLogCreate)
	authRouter.POST("/log/delete", handlers.TravelLogDelete)
	router.GET("/metrics", metrics.Handler())
	// Map handlers
	router.GET("/map/config", (&utils.CacheRouter{CacheTime: mapConfigCacheTime, Public: true}).Handler(), handlers.MapConfig)
	authRouter.GET("/map/frame", handlers.MapFrame)
	authRouter.GET("/map/markers", handlers.MapMarkers)
	authRouter.POST("/map/views", handlers.MapViewMount)
	authRouter.DELETE("/map/views/:id", handlers.MapViewUnmount)
	authRouter.POST("/map/views/:id/layout", handlers.MapViewLayout)
	authRouter.POST("/map/views/:id/click", handlers.MapViewClick)
	authRouter.POST("/map/views/:id/clear", handlers.MapViewClear)
	authRouter.POST("/map/views/:id/pointer", handlers.MapViewPointer)
	authRouter.GET("/map/views/:id/state", handlers.MapViewState)
	authRouter.GET("/map/views/:id/ws", handlers.MapViewWebSocket)
	return router
}
