package analyzer

import (
	"errors"
	"fmt"

	"github.com/canopy-network/nodedist/pkg/config"
	"github.com/canopy-network/nodedist/pkg/lookup"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// buildLookups wires the configured ASN and geo gateways behind their caches. The returned
// closer releases the geo database when one is open.
func buildLookups(cfg *config.Config, logger *zap.Logger, rdb *redis.Client) (lookup.ASNLookup, lookup.GeoLookup, func(), error) {
	timeout, err := cfg.LookupTimeout()
	if err != nil {
		return nil, nil, nil, err
	}

	var geo lookup.GeoLookup
	closer := func() {}
	switch cfg.Lookup.GeoBackend {
	case config.GeoIP2Location:
		db, err := lookup.OpenIP2Location(cfg.Lookup.IP2LocationDB)
		if err != nil {
			return nil, nil, nil, err
		}
		geo, closer = db, db.Close
	case config.GeoIPInfo:
		if cfg.Lookup.IPInfoToken == "" {
			return nil, nil, nil, errors.New("ipinfo geo backend needs IPINFO_TOKEN or keys.json")
		}
		geo = lookup.NewIPInfoGeo(cfg.Lookup.IPInfoToken, lookup.HTTPOpts{
			Endpoints: cfg.Lookup.IPInfoEndpoints,
			Timeout:   timeout,
			RPS:       cfg.Lookup.IPInfoRPS,
		}, logger.Named("ipinfo"))
	default:
		return nil, nil, nil, fmt.Errorf("unknown geo backend %q", cfg.Lookup.GeoBackend)
	}

	opts := lookup.CacheOpts{Size: cfg.Lookup.CacheSize, Logger: logger.Named("lookup_cache")}
	if cfg.Lookup.RedisCache {
		opts.Redis = rdb
	}

	asn, err := lookup.NewCachedASN(lookup.NewCymruASN(cfg.Lookup.Resolver, timeout, logger.Named("cymru")), opts)
	if err != nil {
		closer()
		return nil, nil, nil, err
	}
	cachedGeo, err := lookup.NewCachedGeo(geo, opts)
	if err != nil {
		closer()
		return nil, nil, nil, err
	}
	return asn, cachedGeo, closer, nil
}
