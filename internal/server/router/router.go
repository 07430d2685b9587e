package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the HTTP handlers mounted by New. Webhook may be nil when
// WhatsApp is not configured.
type Handlers struct {
	Tenant  *handlers.TenantHandler
	Feed    *handlers.FeedHandler
	Flock   *handlers.FlockHandler
	Reports *handlers.ReportHandler
	Webhook *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, tenants handlers.TenantOpener, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Webhook.SendMessage)
	}

	api := r.Group("/api", handlers.RequireUser())
	api.POST("/tenant", h.Tenant.Provision)
	api.DELETE("/tenant/data", h.Tenant.Clear)
	api.POST("/reports/feed", h.Reports.Publish)
	api.GET("/reports/feed", h.Reports.History)

	farm := api.Group("", handlers.TenantScope(tenants, logger))
	farm.GET("/feed-settings", h.Feed.ListSettings)
	farm.GET("/feed-settings/:stage", h.Feed.GetSetting)
	farm.PUT("/feed-settings/:stage", h.Feed.PutSetting)
	farm.GET("/feed-types", h.Feed.ListFeedTypes)
	farm.POST("/feed-types", h.Feed.AddFeedType)
	farm.GET("/feed-calculation", h.Feed.FarmCalculation)

	farm.GET("/pens", h.Flock.ListPens)
	farm.POST("/pens", h.Flock.CreatePen)
	farm.GET("/pens/:id", h.Flock.GetPen)
	farm.PATCH("/pens/:id", h.Flock.UpdatePen)
	farm.GET("/pens/:id/meal-plan", h.Feed.GetMealPlan)
	farm.PUT("/pens/:id/meal-plan", h.Feed.PutMealPlan)
	farm.PUT("/pens/:id/meal-plan/:meal", h.Feed.PutMeal)
	farm.GET("/pens/:id/feed-calculation", h.Feed.PenCalculation)

	farm.GET("/sheep", h.Flock.ListSheep)
	farm.POST("/sheep", h.Flock.CreateSheep)
	farm.PATCH("/sheep/:id", h.Flock.UpdateSheep)
	farm.POST("/sheep/:id/pregnancies", h.Flock.RecordPregnancy)
	farm.POST("/pregnancies/:id/delivered", h.Flock.MarkDelivered)

	logger.Info("router initialized", zap.Bool("whatsapp", h.Webhook != nil))

	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_id", c.GetHeader(handlers.UserIDHeader)))
	}
}
