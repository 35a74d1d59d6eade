package config

import "go.uber.org/fx"

// Module wires application and webhook configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewWebhookConfigHolder,
	),
)
