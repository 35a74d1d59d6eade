package webhook

import (
	"github.com/solvance/cashier-polar/internal/webhook/service"
	"github.com/solvance/cashier-polar/internal/webhook/signature"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook",
	fx.Provide(signature.New),
	fx.Provide(service.New),
)
