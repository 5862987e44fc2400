package controller

import (
	"net/http"

	"github.com/canopy-network/nodedist/pkg/db/models/reports"
	"github.com/canopy-network/nodedist/pkg/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type historyResponse[T any] struct {
	Data  []T `json:"data"`
	Limit int `json:"limit"`
}

// HandleProviderHistory returns the daily rows of ?provider=, newest first.
func (c *Controller) HandleProviderHistory(w http.ResponseWriter, r *http.Request) {
	if c.App.History == nil {
		utils.WriteError(w, http.StatusNotImplemented, "history is disabled")
		return
	}
	chain := mux.Vars(r)["chain"]
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing provider")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.History.ProviderHistory(r.Context(), chain, provider, limit)
	if err != nil {
		c.App.Logger.Error("provider history failed", zap.String("chain", chain), zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "query failed")
		return
	}
	utils.WriteJSON(w, http.StatusOK, historyResponse[reports.ProviderDistribution]{Data: rows, Limit: limit})
}

// HandleGeoHistory returns continent rows, or the country rows of ?continent=.
func (c *Controller) HandleGeoHistory(w http.ResponseWriter, r *http.Request) {
	if c.App.History == nil {
		utils.WriteError(w, http.StatusNotImplemented, "history is disabled")
		return
	}
	chain := mux.Vars(r)["chain"]
	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.History.GeoHistory(r.Context(), chain, r.URL.Query().Get("continent"), limit)
	if err != nil {
		c.App.Logger.Error("geo history failed", zap.String("chain", chain), zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "query failed")
		return
	}
	utils.WriteJSON(w, http.StatusOK, historyResponse[reports.GeoDistribution]{Data: rows, Limit: limit})
}
