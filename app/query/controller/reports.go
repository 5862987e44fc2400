package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/canopy-network/nodedist/pkg/report"
	"github.com/canopy-network/nodedist/pkg/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleChains lists the chains that have a network report.
func (c *Controller) HandleChains(w http.ResponseWriter, _ *http.Request) {
	chains, err := c.App.Reports.Chains()
	if err != nil {
		c.App.Logger.Error("list chains failed", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "list chains failed")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string][]string{"chains": chains})
}

func (c *Controller) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	chain := mux.Vars(r)["chain"]
	c.serveReport(w, chain, func() (json.RawMessage, error) { return c.App.Reports.Network(chain) })
}

func (c *Controller) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	chain := mux.Vars(r)["chain"]
	c.serveReport(w, chain, func() (json.RawMessage, error) { return c.App.Reports.Diagnostics(chain) })
}

// HandleProvider returns the newest report of a tracked provider, by display name.
func (c *Controller) HandleProvider(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c.serveReport(w, vars["chain"], func() (json.RawMessage, error) { return c.App.Reports.Provider(vars["chain"], vars["name"]) })
}

func (c *Controller) HandleCountry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c.serveReport(w, vars["chain"], func() (json.RawMessage, error) { return c.App.Reports.Country(vars["chain"], vars["name"]) })
}

// serveReport writes a stored document as is.
func (c *Controller) serveReport(w http.ResponseWriter, chain string, load func() (json.RawMessage, error)) {
	if chain == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing chain")
		return
	}
	doc, err := load()
	if errors.Is(err, report.ErrNoReport) {
		utils.WriteError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		c.App.Logger.Error("read report failed", zap.String("chain", chain), zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "read report failed")
		return
	}
	utils.WriteJSON(w, http.StatusOK, doc)
}
