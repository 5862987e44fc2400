package controller

import (
	"net/http"

	"github.com/canopy-network/nodedist/app/query/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/chains", c.HandleChains).Methods("GET")
	r.HandleFunc("/chains/{chain}/distribution", c.HandleDistribution).Methods("GET")
	r.HandleFunc("/chains/{chain}/diagnostics", c.HandleDiagnostics).Methods("GET")
	r.HandleFunc("/chains/{chain}/providers/{name}", c.HandleProvider).Methods("GET")
	r.HandleFunc("/chains/{chain}/countries/{name}", c.HandleCountry).Methods("GET")

	r.HandleFunc("/chains/{chain}/history/providers", c.HandleProviderHistory).Methods("GET")
	r.HandleFunc("/chains/{chain}/history/geo", c.HandleGeoHistory).Methods("GET")

	r.HandleFunc("/runs", c.HandleRuns).Methods("GET")

	return r, nil
}

// WithCORS allows browser dashboards on other origins to read the API.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
