package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agencyflow/internal/activity"
	"github.com/smallbiznis/agencyflow/internal/clock"
	"github.com/smallbiznis/agencyflow/internal/config"
	"github.com/smallbiznis/agencyflow/internal/directory"
	"github.com/smallbiznis/agencyflow/internal/fanout"
	"github.com/smallbiznis/agencyflow/internal/file"
	"github.com/smallbiznis/agencyflow/internal/invoice"
	"github.com/smallbiznis/agencyflow/internal/mailer"
	"github.com/smallbiznis/agencyflow/internal/migration"
	"github.com/smallbiznis/agencyflow/internal/notification"
	"github.com/smallbiznis/agencyflow/internal/observability"
	obslogger "github.com/smallbiznis/agencyflow/internal/observability/logger"
	"github.com/smallbiznis/agencyflow/internal/project"
	"github.com/smallbiznis/agencyflow/internal/providers/email"
	"github.com/smallbiznis/agencyflow/internal/realtime"
	"github.com/smallbiznis/agencyflow/internal/server"
	"github.com/smallbiznis/agencyflow/internal/storage"
	"github.com/smallbiznis/agencyflow/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		fx.Provide(RegisterDatabase),
		fx.Invoke(db.Register),
		migration.Module,
		clock.Module,

		// Delivery channels
		realtime.Module,
		storage.Module,
		email.Module,
		fx.Provide(fx.Annotate(mailer.NewGateway, fx.As(new(mailer.Sender)))),
		fanout.Module,

		// Functional Domains
		directory.Module,
		activity.Module,
		notification.Module,
		invoice.Module,
		file.Module,
		project.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

func RegisterDatabase(cfg config.Config, obsCfg observability.Config, gormLog *obslogger.GormLogger) (*gorm.DB, error) {
	return db.Open(cfg.DB, db.Options{
		Logger:  gormLog,
		Tracing: obsCfg.OtelEnabled,
		Metrics: true,
	})
}
