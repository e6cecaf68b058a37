package http

import (
	"go.uber.org/fx"

	"evidence-stamp/internal/delivery/http/handler"
	"evidence-stamp/internal/delivery/http/router"
)

var Module = fx.Module("http",
	fx.Provide(
		handler.NewHealthHandler,
		handler.NewConfigHandler,
		handler.NewLabelHandler,
		handler.NewBatchHandler,
		router.NewRouter,
	),
)
