package providers

import (
	"github.com/smallbiznis/utilitybill/internal/providers/pdf"
	"go.uber.org/fx"
)

// Module provides the document renderers. The xlsx package is stateless and
// needs no wiring.
var Module = fx.Module("providers",
	pdf.Module,
)
