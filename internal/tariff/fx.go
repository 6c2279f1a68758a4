package tariff

import (
	"github.com/smallbiznis/utilitybill/internal/cache"
	"github.com/smallbiznis/utilitybill/internal/tariff/repository"
	"github.com/smallbiznis/utilitybill/internal/tariff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tariff.service",
	fx.Provide(cache.NewTariffCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
