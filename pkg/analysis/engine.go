package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/lookup"
	"github.com/canopy-network/nodedist/pkg/registry"
	"github.com/canopy-network/nodedist/pkg/tracking"
	"go.uber.org/zap"
)

// Deps are the collaborators of an Engine.
type Deps struct {
	Providers *registry.ProviderRegistry
	Countries *registry.CountryRegistry
	ASN       lookup.ASNLookup
	Geo       lookup.GeoLookup
	// Tracked may be nil when nothing is tracked in detail.
	Tracked *tracking.Set
	Logger  *zap.Logger
}

// Engine attributes every node of an inventory to a provider and a place and rolls the
// counts up into a ChainReport.
type Engine struct {
	kind ChainKind
	deps Deps
}

func NewEngine(kind ChainKind, deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tracked == nil {
		deps.Tracked = tracking.NewSet()
	}
	if deps.Providers == nil {
		deps.Providers = registry.NewProviderRegistry(nil)
	}
	if deps.Countries == nil {
		deps.Countries = registry.NewCountryRegistry(nil)
	}
	return &Engine{kind: kind, deps: deps}
}

func (e *Engine) Kind() ChainKind { return e.kind }

// place is a node's resolved geography.
type place struct {
	continent string
	country   string
	site      tracking.Site
}

// Aggregate scans nodes in document order and updates report. Role metadata is checked
// for every node before the first counter moves, so a bad document leaves report untouched.
func (e *Engine) Aggregate(ctx context.Context, report *ChainReport, nodes inventory.Nodes) error {
	entries := nodes.Entries()
	roles := make([]string, len(entries))
	for i, entry := range entries {
		role, err := e.kind.Classify(entry.Node)
		if err != nil {
			return fmt.Errorf("node %s: %w", entry.IP, err)
		}
		roles[i] = role
	}

	logger := e.deps.Logger.With(zap.String("chain", report.Chain))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.observe(ctx, logger, report, entry.IP, entry.Node, roles[i])
	}
	return nil
}

func (e *Engine) observe(ctx context.Context, logger *zap.Logger, report *ChainReport, ip string, node inventory.NodeRecord, role string) {
	if node.Stake.Malformed() {
		logger.Warn("unparsable stake counted as zero", zap.String("ip", ip), zap.String("stake", node.Stake.Raw()))
	}

	var (
		provider string
		where    place
	)
	if lookup.IsInvalid(ip) {
		provider = Invalid
		where = place{continent: Invalid, country: Invalid, site: tracking.Site{
			Country: Invalid, CountryCode: Invalid, City: Invalid, Region: Invalid,
		}}
		report.InvalidIPs = append(report.InvalidIPs, ip)
		attributionTotal.WithLabelValues(report.Chain, "provider", "invalid").Inc()
		attributionTotal.WithLabelValues(report.Chain, "geo", "invalid").Inc()
	} else {
		provider = e.resolveProvider(ctx, logger, report, ip, node)
		where = e.resolvePlace(ctx, logger, report, ip, node)
	}

	e.kind.Observe(&report.Bucket, node, role)
	e.kind.Observe(report.providerBucket(e.kind, provider), node, role)
	continent := report.continentBucket(e.kind, where.continent)
	e.kind.Observe(&continent.Bucket, node, role)
	e.kind.Observe(continent.countryBucket(e.kind, where.country), node, role)

	if p, ok := e.deps.Tracked.Provider(provider); ok {
		p.RecordNode(ip, node, where.site, role)
	}
	if c, ok := e.deps.Tracked.Country(where.site.CountryCode); ok {
		c.RecordNode(ip, node, where.site.City, role)
	}
}

func (e *Engine) resolveProvider(ctx context.Context, logger *zap.Logger, report *ChainReport, ip string, node inventory.NodeRecord) string {
	res, err := e.deps.ASN.LookupASN(ctx, ip)
	if err != nil {
		logger.Warn("asn lookup failed", zap.String("ip", ip), zap.Error(err))
		report.UnidentifiedASNs[ip] = node
		attributionTotal.WithLabelValues(report.Chain, "provider", "unidentified").Inc()
		return Unidentified
	}
	if name, ok := e.deps.Providers.Resolve(res.ASN); ok {
		attributionTotal.WithLabelValues(report.Chain, "provider", "resolved").Inc()
		return name
	}
	attributionTotal.WithLabelValues(report.Chain, "provider", "other").Inc()
	return Other
}

func (e *Engine) resolvePlace(ctx context.Context, logger *zap.Logger, report *ChainReport, ip string, node inventory.NodeRecord) place {
	loc, err := e.deps.Geo.LookupGeo(ctx, ip)
	if err != nil {
		logger.Warn("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		report.UnidentifiedLocations[ip] = node
		attributionTotal.WithLabelValues(report.Chain, "geo", "unidentified").Inc()
		return place{continent: Unidentified, country: Unidentified, site: tracking.Site{
			Country: Unidentified, CountryCode: Unidentified, City: Unidentified, Region: Unidentified,
		}}
	}
	attributionTotal.WithLabelValues(report.Chain, "geo", "resolved").Inc()

	code := strings.ToUpper(loc.CountryCode)
	country := loc.Country
	if name, ok := e.deps.Countries.Name(code); ok {
		country = name
	}
	if country == "" {
		country = Unidentified
	}
	continent := loc.Continent
	if continent == "" {
		continent = Unidentified
	}
	return place{
		continent: continent,
		country:   country,
		site: tracking.Site{
			Country:     country,
			CountryCode: code,
			City:        loc.City,
			Region:      loc.Region,
			Latitude:    loc.Latitude,
			Longitude:   loc.Longitude,
		},
	}
}

// CalculatePercentages fills the percentage fields of every bucket at every level. It
// runs once, after Aggregate.
func (e *Engine) CalculatePercentages(report *ChainReport) {
	root := &report.Bucket
	e.kind.Percentages(root, root)
	for _, b := range report.Providers {
		e.kind.Percentages(b, root)
	}
	for _, c := range report.Continents {
		e.kind.Percentages(&c.Bucket, root)
		for _, b := range c.Countries {
			e.kind.Percentages(b, root)
		}
	}
}
