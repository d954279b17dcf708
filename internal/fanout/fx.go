package fanout

import "go.uber.org/fx"

var Module = fx.Module("fanout",
	fx.Provide(NewDispatcher),
)
