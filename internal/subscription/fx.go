package subscription

import (
	"github.com/solvance/cashier-polar/internal/subscription/repository"
	"github.com/solvance/cashier-polar/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
