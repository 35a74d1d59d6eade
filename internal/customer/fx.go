package customer

import (
	"github.com/solvance/cashier-polar/internal/customer/repository"
	"github.com/solvance/cashier-polar/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
