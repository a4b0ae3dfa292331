package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-complaints-api/internal/handler"
	"github.com/noah-isme/civic-complaints-api/internal/middleware"
	"github.com/noah-isme/civic-complaints-api/internal/models"
	"github.com/noah-isme/civic-complaints-api/internal/service"
	"github.com/noah-isme/civic-complaints-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/civic-complaints-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/civic-complaints-api/pkg/middleware/requestid"
)

// Options carries everything the HTTP surface needs.
type Options struct {
	APIPrefix            string
	AllowedOrigins       []string
	EnableDocs           bool
	DailySubmissionLimit int

	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Tokens    middleware.TokenValidator
	Counters  middleware.CounterStore
	AuditLogs middleware.AuditWriter

	Auth       *handler.AuthHandler
	Complaints *handler.ComplaintHandler
	Health     *handler.MetricsHandler
}

// New builds the gin engine with the full route table.
func New(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	r.GET("/health", opts.Health.Health)
	r.GET("/ready", opts.Health.Ready)
	r.GET("/metrics", opts.Health.Prometheus)

	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", opts.Auth.Register)
	auth.POST("/login", opts.Auth.Login)
	auth.GET("/me", middleware.JWT(opts.Tokens), opts.Auth.Me)

	// Signed tokens authorize photo downloads so they work from <img> tags.
	api.GET("/complaints/:id/image", opts.Complaints.Image)

	complaints := api.Group("/complaints", middleware.JWT(opts.Tokens))

	citizen := middleware.RequireRoles(models.RoleCitizen)
	complaints.POST("",
		citizen,
		middleware.SubmissionLimiter(opts.Counters, opts.DailySubmissionLimit, opts.Metrics, opts.Logger),
		opts.Complaints.Submit,
	)
	complaints.GET("/mine", citizen, opts.Complaints.ListMine)

	employee := middleware.RequireRoles(models.RoleEmployee)
	complaints.GET("", employee, opts.Complaints.Ranked)
	complaints.GET("/export",
		employee,
		middleware.Audit(opts.AuditLogs, opts.Logger, models.AuditActionComplaintExport, "complaint"),
		opts.Complaints.Export,
	)
	complaints.PATCH("/:id/status", employee, opts.Complaints.UpdateStatus)
	complaints.GET("/:id/history", employee, opts.Complaints.History)

	return r
}
