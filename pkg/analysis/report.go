package analysis

import (
	"time"

	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/tracking"
)

// ChainReport is the distribution of one chain for one run. The embedded Bucket holds
// the chain-wide counters.
type ChainReport struct {
	Chain            string         `json:"chain"`
	Kind             string         `json:"kind"`
	AnalysisDate     string         `json:"analysis_date"`
	CollectionMethod string         `json:"collection_method,omitempty"`
	Info             map[string]any `json:"info,omitempty"`
	Bucket

	Providers  map[string]*Bucket          `json:"provider_distribution"`
	Continents map[string]*ContinentBucket `json:"geo_distribution"`

	UnidentifiedASNs      map[string]inventory.NodeRecord `json:"unidentified_asns"`
	UnidentifiedLocations map[string]inventory.NodeRecord `json:"unidentified_locations"`
	InvalidIPs            []string                        `json:"invalid_ips"`
}

// NewChainReport builds an empty report for doc. The document timestamp becomes the
// analysis date; when absent the run date is used.
func NewChainReport(chain string, kind ChainKind, doc *inventory.Document, now time.Time) *ChainReport {
	r := &ChainReport{
		Chain:                 chain,
		Kind:                  kind.Name(),
		AnalysisDate:          now.Format(tracking.DateLayout),
		Bucket:                *kind.NewBucket(),
		Providers:             map[string]*Bucket{},
		Continents:            map[string]*ContinentBucket{},
		UnidentifiedASNs:      map[string]inventory.NodeRecord{},
		UnidentifiedLocations: map[string]inventory.NodeRecord{},
		InvalidIPs:            []string{},
	}
	if doc != nil {
		if doc.Timestamp != "" {
			r.AnalysisDate = doc.Timestamp
		}
		r.CollectionMethod = doc.CollectionMethod
		r.Info = doc.ChainData
	}
	return r
}

func (r *ChainReport) providerBucket(kind ChainKind, name string) *Bucket {
	b, ok := r.Providers[name]
	if !ok {
		b = kind.NewBucket()
		r.Providers[name] = b
	}
	return b
}

func (r *ChainReport) continentBucket(kind ChainKind, name string) *ContinentBucket {
	b, ok := r.Continents[name]
	if !ok {
		b = &ContinentBucket{Bucket: *kind.NewBucket(), Countries: map[string]*Bucket{}}
		r.Continents[name] = b
	}
	return b
}

func (c *ContinentBucket) countryBucket(kind ChainKind, name string) *Bucket {
	b, ok := c.Countries[name]
	if !ok {
		b = kind.NewBucket()
		c.Countries[name] = b
	}
	return b
}

// Totals are the denominators tracked entities report their shares against.
func (r *ChainReport) Totals() tracking.ChainTotals {
	t := tracking.ChainTotals{Nodes: int(r.TotalNodes), Stake: r.StakeTotal()}
	if r.RoleCounts != nil {
		t.RoleStake = r.RoleStake
	}
	return t
}

// ProviderNodeSum and ContinentNodeSum add up each axis's top-level buckets. Both equal
// TotalNodes after a scan.
func (r *ChainReport) ProviderNodeSum() int64 {
	var sum int64
	for _, b := range r.Providers {
		sum += b.TotalNodes
	}
	return sum
}

func (r *ChainReport) ContinentNodeSum() int64 {
	var sum int64
	for _, b := range r.Continents {
		sum += b.TotalNodes
	}
	return sum
}
