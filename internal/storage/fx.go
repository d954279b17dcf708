package storage

import (
	"fmt"

	"github.com/smallbiznis/agencyflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("storage",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return NewS3Storage(cfg.Storage, log)
	case "", "memory":
		log.Warn("using in-memory blob storage, uploads are lost on restart")
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
