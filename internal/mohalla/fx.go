package mohalla

import (
	"github.com/smallbiznis/utilitybill/internal/mohalla/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mohalla.service",
	fx.Provide(service.New),
)
