package polar

import "go.uber.org/fx"

var Module = fx.Module("polar.client",
	fx.Provide(New),
)
