package project

import (
	"github.com/smallbiznis/agencyflow/internal/project/repository"
	"github.com/smallbiznis/agencyflow/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
