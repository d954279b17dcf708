package file

import (
	"github.com/smallbiznis/agencyflow/internal/file/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("file.repository",
	fx.Provide(repository.Provide),
)
