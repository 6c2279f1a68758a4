package house

import (
	"github.com/smallbiznis/utilitybill/internal/house/repository"
	"github.com/smallbiznis/utilitybill/internal/house/service"
	"go.uber.org/fx"
)

var Module = fx.Module("house.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
