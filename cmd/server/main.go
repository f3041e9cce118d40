// Package main runs the back-office HTTP server with the realtime change feed and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/commandcentered/backend/config"
	"github.com/commandcentered/backend/internal/auth"
	"github.com/commandcentered/backend/internal/campaigns"
	"github.com/commandcentered/backend/internal/communications"
	"github.com/commandcentered/backend/internal/crm"
	"github.com/commandcentered/backend/internal/dashboard"
	"github.com/commandcentered/backend/internal/deliverables"
	"github.com/commandcentered/backend/internal/events"
	"github.com/commandcentered/backend/internal/files"
	"github.com/commandcentered/backend/internal/gear"
	"github.com/commandcentered/backend/internal/integrations"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/operators"
	"github.com/commandcentered/backend/internal/planner"
	"github.com/commandcentered/backend/internal/proposals"
	"github.com/commandcentered/backend/internal/realtime"
	"github.com/commandcentered/backend/internal/reports"
	"github.com/commandcentered/backend/internal/servicetemplates"
	"github.com/commandcentered/backend/internal/shifts"
	"github.com/commandcentered/backend/internal/templates"
	"github.com/commandcentered/backend/internal/tenants"
	"github.com/commandcentered/backend/pkg/database"
	"github.com/commandcentered/backend/pkg/redis"
	"github.com/commandcentered/backend/pkg/response"
	"github.com/commandcentered/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	planDefaults, err := planner.DefaultsFrom(cfg.Planner)
	if err != nil {
		logger.Fatal("planner defaults", zap.Error(err))
	}

	ctx := context.Background()
	if err := database.Migrate(cfg.Database.DSN(), logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	// Redis only fans realtime events out to other instances; one instance runs fine without it.
	var hub *realtime.Hub
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, realtime events stay on this instance", zap.Error(err))
		hub = realtime.NewHub(logger, nil, nil)
	} else {
		defer rdb.Close()
		bridge := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, bridge, bridge)
	}

	var objects files.ObjectStore
	if cfg.AWS.FilesBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			FilesBucket:          cfg.AWS.FilesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			objects = s3Client
		}
	}

	var drive integrations.FolderCreator
	if d, err := integrations.NewDrive(ctx, cfg.Integrations.GoogleCredentialsFile, cfg.Integrations.DriveParentFolderID, logger); err == nil {
		drive = d
	} else if !errors.Is(err, integrations.ErrNotConfigured) {
		logger.Warn("google drive disabled", zap.Error(err))
	}
	var live integrations.LivestreamLister
	if l, err := integrations.NewLivestreams(cfg.Integrations.LivestreamAPIURL, cfg.Integrations.LivestreamAPIToken); err == nil {
		live = l
	}
	var orgs integrations.OrganizationSearcher
	if e, err := integrations.NewEnrichment(cfg.Integrations.EnrichmentAPIURL, cfg.Integrations.EnrichmentAPIKey); err == nil {
		orgs = e
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	tenantHandler := tenants.NewHandler(tenants.NewRepository(pool))

	eventRepo := events.NewRepository(pool)
	shiftSvc := shifts.NewService(shifts.NewRepository(pool), logger)
	gearRepo := gear.NewRepository(pool)
	crmRepo := crm.NewRepository(pool)
	templateRepo := templates.NewRepository(pool)

	eventHandler := events.NewHandler(eventRepo, shiftSvc, logger)
	shiftHandler := shifts.NewHandler(shiftSvc, logger)
	operatorHandler := operators.NewHandler(operators.NewRepository(pool), shiftSvc, logger)
	gearHandler := gear.NewHandler(gearRepo, logger)
	deliverableHandler := deliverables.NewHandler(deliverables.NewRepository(pool), logger)
	crmHandler := crm.NewHandler(crmRepo, logger)
	commsHandler := communications.NewHandler(communications.NewRepository(pool), logger)
	serviceTemplateHandler := servicetemplates.NewHandler(servicetemplates.NewRepository(pool), logger)
	templateHandler := templates.NewHandler(templateRepo, logger)
	proposalHandler := proposals.NewHandler(proposals.NewRepository(pool), templateRepo, logger)
	campaignHandler := campaigns.NewHandler(campaigns.NewRepository(pool), logger)
	fileHandler := files.NewHandler(files.NewRepository(pool), objects, logger)
	dashboardHandler := dashboard.NewHandler(dashboard.NewRepository(pool), logger)
	reportHandler := reports.NewHandler(reports.NewRepository(pool), logger)
	plannerHandler := planner.NewHandler(planner.NewService(eventRepo, shiftSvc, gearRepo, planDefaults, logger), logger)
	integrationHandler := integrations.NewHandler(drive, live, orgs, eventRepo, crmRepo, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewHTTPMetrics(registry)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	if cfg.Metrics.Enabled {
		router.Use(httpMetrics.Middleware())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/health/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ready", "redis": rdb != nil && rdb.Healthy(pingCtx)})
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public proposal builder: published templates are addressed by tenant slug and template slug.
	public := router.Group("/public/:tenant/templates/:slug")
	{
		public.GET("", templateHandler.GetPublished)
		public.POST("/quote", templateHandler.Quote)
		public.POST("/proposals", proposalHandler.Submit)
	}

	router.GET("/ws", realtime.ServeWs(hub, jwtService, middleware.OriginAllowed(cfg.Server.CORSAllowedOrigins), logger))

	admin := middleware.RequireRole("owner", "admin")

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	api.Use(realtime.InvalidateOnWrite(hub))
	{
		api.GET("/me", authHandler.Me)
		api.GET("/users", authHandler.List)
		api.PATCH("/users/:id/role", admin, authHandler.UpdateRole)
		api.GET("/tenant", tenantHandler.Current)
		api.PATCH("/tenant", middleware.RequireRole("owner"), tenantHandler.Rename)
		api.POST("/tenant/users", admin, authHandler.AddUser)

		api.GET("/events", eventHandler.List)
		api.GET("/events/calendar", eventHandler.Calendar)
		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PATCH("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)
		api.POST("/events/:id/archive", eventHandler.Archive)
		api.GET("/events/:id/shifts", shiftHandler.ListByEvent)
		api.GET("/events/:id/deliverables", deliverableHandler.ListByEvent)
		api.POST("/events/:id/drive-folder", integrationHandler.CreateDriveFolder)

		api.POST("/shifts", shiftHandler.Create)
		api.GET("/shifts/:id", shiftHandler.Get)
		api.PATCH("/shifts/:id", shiftHandler.Update)
		api.DELETE("/shifts/:id", shiftHandler.Delete)
		api.POST("/shifts/:id/assignments", shiftHandler.Assign)
		api.PATCH("/assignments/:id", shiftHandler.UpdateAssignment)
		api.DELETE("/assignments/:id", shiftHandler.Unassign)

		api.GET("/operators", operatorHandler.List)
		api.POST("/operators", operatorHandler.Create)
		api.GET("/operators/:id", operatorHandler.GetByID)
		api.PATCH("/operators/:id", operatorHandler.Update)
		api.DELETE("/operators/:id", operatorHandler.Delete)
		api.PUT("/operators/:id/skills", operatorHandler.ReplaceSkills)
		api.GET("/operators/:id/availability", operatorHandler.ListAvailability)
		api.POST("/operators/:id/availability", operatorHandler.CreateAvailability)
		api.DELETE("/availability/:id", operatorHandler.DeleteAvailability)
		api.GET("/operators/:id/blackouts", operatorHandler.ListBlackouts)
		api.POST("/operators/:id/blackouts", operatorHandler.AddBlackout)
		api.DELETE("/blackouts/:id", operatorHandler.DeleteBlackout)
		api.GET("/operators/:id/history", operatorHandler.History)
		api.GET("/operators/:id/upcoming", operatorHandler.Upcoming)
		api.GET("/operators/:id/conflicts", operatorHandler.Conflicts)

		api.GET("/gear", gearHandler.List)
		api.GET("/gear/by-category", gearHandler.ByCategory)
		api.GET("/gear/available", gearHandler.Available)
		api.POST("/gear", gearHandler.Create)
		api.GET("/gear/:id", gearHandler.GetByID)
		api.PATCH("/gear/:id", gearHandler.Update)
		api.PATCH("/gear/:id/status", gearHandler.UpdateStatus)
		api.DELETE("/gear/:id", gearHandler.Delete)
		api.GET("/gear/:id/history", gearHandler.History)

		api.GET("/kits", gearHandler.ListKits)
		api.POST("/kits", gearHandler.CreateKit)
		api.GET("/kits/:id", gearHandler.GetKit)
		api.PATCH("/kits/:id", gearHandler.UpdateKit)
		api.DELETE("/kits/:id", gearHandler.DeleteKit)
		api.POST("/kits/:id/archive", gearHandler.ArchiveKit)
		api.POST("/kits/:id/restore", gearHandler.RestoreKit)
		api.POST("/kits/:id/gear/bulk-add", gearHandler.BulkAddGear)
		api.POST("/kits/:id/gear/bulk-remove", gearHandler.BulkRemoveGear)
		api.POST("/kits/:id/gear/:gearId", gearHandler.AddGear)
		api.DELETE("/kits/:id/gear/:gearId", gearHandler.RemoveGear)

		api.GET("/gear-assignments", gearHandler.ListAssignments)
		api.POST("/gear-assignments", gearHandler.Assign)
		api.POST("/gear-assignments/kit", gearHandler.AssignKit)
		api.POST("/gear-assignments/availability", gearHandler.CheckAvailability)
		api.GET("/gear-assignments/:id", gearHandler.GetAssignment)
		api.DELETE("/gear-assignments/:id", gearHandler.Unassign)
		api.POST("/gear-assignments/:id/reassign", gearHandler.Reassign)
		api.PATCH("/gear-assignments/:id/pack-status", gearHandler.UpdatePackStatus)

		api.GET("/deliverables", deliverableHandler.List)
		api.POST("/deliverables", deliverableHandler.Create)
		api.GET("/deliverables/:id", deliverableHandler.GetByID)
		api.PATCH("/deliverables/:id", deliverableHandler.Update)
		api.PATCH("/deliverables/:id/status", deliverableHandler.UpdateStatus)
		api.PUT("/deliverables/:id/editor", deliverableHandler.AssignEditor)
		api.POST("/deliverables/:id/complete", deliverableHandler.MarkComplete)
		api.PUT("/deliverables/:id/drive-folder", deliverableHandler.SetDriveFolder)
		api.DELETE("/deliverables/:id", deliverableHandler.Delete)

		api.GET("/clients", crmHandler.ListClients)
		api.POST("/clients", crmHandler.CreateClient)
		api.GET("/clients/:id", crmHandler.GetClient)
		api.PATCH("/clients/:id", crmHandler.UpdateClient)
		api.DELETE("/clients/:id", crmHandler.DeleteClient)
		api.GET("/leads", crmHandler.ListLeads)
		api.POST("/leads", crmHandler.CreateLead)
		api.GET("/leads/:id", crmHandler.GetLead)
		api.PATCH("/leads/:id", crmHandler.UpdateLead)
		api.PATCH("/leads/:id/status", crmHandler.UpdateLeadStatus)
		api.DELETE("/leads/:id", crmHandler.DeleteLead)
		api.POST("/leads/:id/convert", crmHandler.ConvertLead)
		api.POST("/interactions", crmHandler.LogInteraction)
		api.GET("/interactions", crmHandler.ListInteractions)
		api.GET("/interactions/latest", crmHandler.LatestInteraction)
		api.GET("/saved-searches", crmHandler.ListSavedSearches)
		api.POST("/saved-searches", crmHandler.CreateSavedSearch)
		api.PATCH("/saved-searches/:id", crmHandler.UpdateSavedSearch)
		api.DELETE("/saved-searches/:id", crmHandler.DeleteSavedSearch)
		api.POST("/saved-searches/:id/touch", crmHandler.TouchSavedSearch)

		api.GET("/touchpoints", commsHandler.ListTouchpoints)
		api.POST("/touchpoints", commsHandler.CreateTouchpoint)
		api.GET("/touchpoints/:id", commsHandler.GetTouchpoint)
		api.PATCH("/touchpoints/:id", commsHandler.UpdateTouchpoint)
		api.GET("/email-configs", commsHandler.ListEmailConfigs)
		api.POST("/email-configs", commsHandler.CreateEmailConfig)
		api.GET("/email-configs/:id", commsHandler.GetEmailConfig)
		api.PATCH("/email-configs/:id", commsHandler.UpdateEmailConfig)

		api.GET("/service-templates", serviceTemplateHandler.List)
		api.POST("/service-templates", serviceTemplateHandler.Create)
		api.GET("/service-templates/:id", serviceTemplateHandler.GetByID)
		api.PATCH("/service-templates/:id", serviceTemplateHandler.Update)
		api.DELETE("/service-templates/:id", serviceTemplateHandler.Delete)
		api.POST("/service-templates/:id/restore", serviceTemplateHandler.Restore)

		api.GET("/templates", templateHandler.List)
		api.POST("/templates", templateHandler.Create)
		api.GET("/templates/:id", templateHandler.GetByID)
		api.PUT("/templates/:id", templateHandler.Update)
		api.DELETE("/templates/:id", templateHandler.Delete)
		api.POST("/templates/:id/publish", templateHandler.Publish)
		api.POST("/templates/:id/unpublish", templateHandler.Unpublish)
		api.POST("/templates/:id/duplicate", templateHandler.Duplicate)
		api.POST("/templates/:id/elements", templateHandler.AddElement)
		api.PUT("/templates/:id/elements/order", templateHandler.Reorder)
		api.DELETE("/templates/:id/elements/:elementId", templateHandler.RemoveElement)
		api.PATCH("/templates/:id/elements/:elementId/settings", templateHandler.UpdateSettings)
		api.POST("/templates/:id/elements/:elementId/lists/:key", templateHandler.EditList)

		api.GET("/proposals", proposalHandler.List)
		api.POST("/proposals", proposalHandler.Create)
		api.GET("/proposals/:id", proposalHandler.GetByID)
		api.PUT("/proposals/:id", proposalHandler.Update)
		api.PATCH("/proposals/:id/status", proposalHandler.UpdateStatus)
		api.POST("/proposals/:id/line-items", proposalHandler.AddLineItem)
		api.POST("/proposals/:id/contract", proposalHandler.ConvertToContract)
		api.GET("/contracts", proposalHandler.ListContracts)
		api.POST("/contracts", proposalHandler.CreateContract)
		api.GET("/contracts/:id", proposalHandler.GetContract)
		api.PUT("/contracts/:id", proposalHandler.UpdateContract)
		api.PATCH("/contracts/:id/status", proposalHandler.UpdateContractStatus)
		api.DELETE("/contracts/:id", proposalHandler.DeleteContract)

		api.GET("/campaigns", campaignHandler.List)
		api.POST("/campaigns", campaignHandler.Create)
		api.GET("/campaigns/:id", campaignHandler.Get)
		api.PUT("/campaigns/:id", campaignHandler.Update)
		api.PATCH("/campaigns/:id/status", campaignHandler.UpdateStatus)
		api.DELETE("/campaigns/:id", campaignHandler.Delete)
		api.POST("/campaigns/:id/steps", campaignHandler.AddStep)
		api.PUT("/campaigns/:id/steps/:stepId", campaignHandler.UpdateStep)
		api.DELETE("/campaigns/:id/steps/:stepId", campaignHandler.DeleteStep)
		api.GET("/campaigns/:id/leads", campaignHandler.ListLeads)
		api.POST("/campaigns/:id/leads", campaignHandler.AddLeads)
		api.DELETE("/campaigns/:id/leads", campaignHandler.RemoveLeads)
		api.POST("/campaigns/:id/leads/:campaignLeadId/events", campaignHandler.Track)

		api.GET("/files", fileHandler.List)
		api.POST("/files", fileHandler.Register)
		api.POST("/files/upload", fileHandler.Upload)
		api.POST("/files/upload-url", fileHandler.UploadURL)
		api.POST("/files/complete", fileHandler.Complete)
		api.GET("/files/:id", fileHandler.GetByID)
		api.GET("/files/:id/download-url", fileHandler.DownloadURL)
		api.DELETE("/files/:id", fileHandler.Delete)

		api.GET("/dashboard/stats", dashboardHandler.Stats)
		api.GET("/dashboard/activity", dashboardHandler.RecentActivity)
		api.GET("/dashboard/upcoming", dashboardHandler.UpcomingEvents)
		api.GET("/dashboard/preferences", dashboardHandler.GetPreferences)
		api.PUT("/dashboard/preferences", dashboardHandler.PutPreferences)

		api.GET("/reports/revenue", reportHandler.Revenue)
		api.GET("/reports/gear-utilization", reportHandler.GearUtilization)
		api.GET("/reports/operator-pay", reportHandler.OperatorPay)
		api.GET("/reports/deliverables", reportHandler.Deliverables)

		api.POST("/planner/drop", plannerHandler.Drop)
		api.POST("/planner/move", plannerHandler.Move)

		api.GET("/integrations/status", integrationHandler.Status)
		api.GET("/integrations/livestreams", integrationHandler.ListLivestreams)
		api.POST("/integrations/lead-finder/search", integrationHandler.SearchOrganizations)
		api.POST("/integrations/lead-finder/export", integrationHandler.ExportToCRM)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port),
			zap.Bool("file_storage", objects != nil), zap.Bool("google_drive", drive != nil))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
