package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/canopy-network/nodedist/pkg/retry"
	"go.uber.org/zap"
)

// DefaultIPInfoEndpoint is the public ipinfo API.
const DefaultIPInfoEndpoint = "https://ipinfo.io"

type ipinfoResponse struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
	Org     string `json:"org"`
	Bogon   bool   `json:"bogon"`
}

// IPInfoGeo answers geo lookups from the ipinfo HTTP API.
type IPInfoGeo struct {
	http   *httpClient
	token  string
	retry  retry.Config
	logger *zap.Logger
}

// NewIPInfoGeo builds an ipinfo backed geo lookup. Endpoints default to DefaultIPInfoEndpoint.
func NewIPInfoGeo(token string, opts HTTPOpts, logger *zap.Logger) *IPInfoGeo {
	if len(opts.Endpoints) == 0 {
		opts.Endpoints = []string{DefaultIPInfoEndpoint}
	}
	return &IPInfoGeo{
		http:   newHTTPClient(opts),
		token:  token,
		retry:  retryConfig(kindGeo),
		logger: logger,
	}
}

func (g *IPInfoGeo) LookupGeo(ctx context.Context, ip string) (Location, error) {
	path := "/" + url.PathEscape(ip) + "/json"
	if g.token != "" {
		path += "?token=" + url.QueryEscape(g.token)
	}

	var resp ipinfoResponse
	start := time.Now()
	err := retry.WithBackoff(ctx, g.retry, g.logger, "ipinfo_geo", func() error {
		err := g.http.getJSON(ctx, path, &resp)
		var se *statusError
		if errors.As(err, &se) && se.code != http.StatusTooManyRequests && se.code < 500 {
			return retry.Permanent(err)
		}
		return err
	})
	if err == nil && (resp.Bogon || resp.Country == "") {
		err = ErrNoLocation
	}
	lookupDuration.WithLabelValues(kindGeo).Observe(time.Since(start).Seconds())
	observeOutcome(kindGeo, err)
	if err != nil {
		return Location{}, fmt.Errorf("geo lookup %s: %w", ip, err)
	}

	code := strings.ToUpper(resp.Country)
	loc := Location{
		Country:     CountryNameOf(code),
		CountryCode: code,
		City:        resp.City,
		Region:      resp.Region,
		Continent:   ContinentOf(code),
	}
	if loc.Country == "" {
		loc.Country = code
	}
	loc.Latitude, loc.Longitude = parseLoc(resp.Loc)
	return loc, nil
}

// parseLoc reads ipinfo's "lat,lon" pair; anything malformed yields zeros.
func parseLoc(s string) (float64, float64) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return lat, lon
}
