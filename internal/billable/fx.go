package billable

import "go.uber.org/fx"

var Module = fx.Module("billable",
	fx.Provide(NewRegistry),
	fx.Provide(NewResolver),
	fx.Provide(New),
)
