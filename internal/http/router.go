package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/householdpro/backend/internal/assignment"
	"github.com/householdpro/backend/internal/config"
	"github.com/householdpro/backend/internal/http/handlers"
	"github.com/householdpro/backend/internal/http/middleware"
	"github.com/householdpro/backend/internal/metrics"

	_ "github.com/householdpro/backend/docs"
)

// Deps are the collaborators the HTTP layer is built on.
type Deps struct {
	Store    handlers.Store
	Assigner handlers.Assigner
	Batch    handlers.BatchRunner
	Presets  assignment.Presets
	Metrics  metrics.Collector
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

func Router(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader, handlers.ActorHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = splitOrigins(cfg.CORSAllowed)
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:         deps.Store,
		Assigner:      deps.Assigner,
		Batch:         deps.Batch,
		Presets:       deps.Presets,
		DefaultPreset: cfg.AssignmentPreset,
		Validator:     handlers.NewValidator(deps.Presets),
		Logger:        deps.Logger,
	}

	r.GET("/healthz", h.Healthz)
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		api.GET("/bookings", h.BookingsList)
		api.GET("/bookings/:id", h.BookingDetails)
		api.GET("/bookings/:id/audit", h.BookingAudit)
		api.GET("/employees", h.EmployeesList)
		api.GET("/assignment/presets", h.PresetsList)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/import", h.Import)
		admin.POST("/process", h.Process)
		admin.GET("/runs/latest", h.RunsLatest)
		admin.POST("/bookings/:id/assign", h.Assign)
		admin.POST("/bookings/:id/unassign", h.Unassign)
		admin.GET("/debug/candidates", h.DebugCandidates)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
