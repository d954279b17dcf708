package invoice

import (
	"github.com/smallbiznis/agencyflow/internal/invoice/render"
	"github.com/smallbiznis/agencyflow/internal/invoice/repository"
	"github.com/smallbiznis/agencyflow/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(
		fx.Annotate(render.NewPDFRenderer, fx.As(new(render.Renderer))),
	),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
