package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	activitydomain "github.com/smallbiznis/agencyflow/internal/activity/domain"
	"github.com/smallbiznis/agencyflow/internal/config"
	invoicedomain "github.com/smallbiznis/agencyflow/internal/invoice/domain"
	notificationdomain "github.com/smallbiznis/agencyflow/internal/notification/domain"
	"github.com/smallbiznis/agencyflow/internal/observability"
	obslogger "github.com/smallbiznis/agencyflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/agencyflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/agencyflow/internal/observability/tracing"
	projectdomain "github.com/smallbiznis/agencyflow/internal/project/domain"
	"github.com/smallbiznis/agencyflow/internal/realtime"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:         obsCfg.Debug(),
		DescribeError: describeErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	log             *zap.Logger
	invoiceSvc      invoicedomain.Service
	projectSvc      projectdomain.Service
	notificationSvc notificationdomain.Service
	activitySvc     activitydomain.Service
	hub             *realtime.Hub
}

func NewServer(
	engine *gin.Engine,
	log *zap.Logger,
	invoiceSvc invoicedomain.Service,
	projectSvc projectdomain.Service,
	notificationSvc notificationdomain.Service,
	activitySvc activitydomain.Service,
	hub *realtime.Hub,
) *Server {
	svc := &Server{
		engine:          engine,
		log:             log.Named("http"),
		invoiceSvc:      invoiceSvc,
		projectSvc:      projectSvc,
		notificationSvc: notificationSvc,
		activitySvc:     activitySvc,
		hub:             hub,
	}
	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(TenantContext())

	// -------- Invoices --------
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/status", s.TransitionInvoiceStatus)
	api.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)

	// -------- Projects --------
	api.POST("/projects", s.CreateProject)
	api.GET("/projects", s.ListProjects)
	api.GET("/projects/:id", s.GetProjectByID)
	api.POST("/projects/:id/status", s.UpdateProjectStatus)
	api.DELETE("/projects/:id", s.DeleteProject)
	api.POST("/projects/:id/files", s.UploadProjectFile)
	api.GET("/projects/:id/activities", s.ListProjectActivities)

	// -------- Notifications --------
	api.GET("/notifications", ActorRequired(), s.ListNotifications)
	api.POST("/notifications/read-all", ActorRequired(), s.MarkAllNotificationsRead)
	api.POST("/notifications/:id/read", ActorRequired(), s.MarkNotificationRead)

	// -------- Realtime --------
	api.GET("/realtime/stream", s.StreamRealtime)
}
