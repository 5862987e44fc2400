package query

import (
	"net/http"

	"github.com/canopy-network/nodedist/app/query/controller"
	"github.com/canopy-network/nodedist/app/query/types"
	"go.uber.org/zap"
)

// NewServer builds the HTTP server of app on Config.Query.Addr.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := app.Config.Query.Addr

	app.Server = &http.Server{Addr: addr, Handler: controller.WithCORS(router)}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}
