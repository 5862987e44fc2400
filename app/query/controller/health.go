package controller

import (
	"net/http"

	"github.com/canopy-network/nodedist/pkg/utils"
)

// HandleHealth checks the optional backends. Report files need no connection.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if c.App.History != nil {
		if err := c.App.History.Ping(ctx); err != nil {
			utils.WriteJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "database connection error"})
			return
		}
	}

	if c.App.Redis != nil {
		if err := c.App.Redis.Health(ctx); err != nil {
			utils.WriteJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "redis connection error"})
			return
		}
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
