// Package lookup resolves the two external facts the analyzer needs per ip: the
// autonomous system that routes it and where it is located.
package lookup

import (
	"context"
	"errors"
	"net/netip"
	"strings"
)

// ErrNoASN is returned when the ASN service has no origin record for an ip.
var ErrNoASN = errors.New("no origin ASN for ip")

// ErrNoLocation is returned when a geo backend has no usable record for an ip.
var ErrNoLocation = errors.New("no location for ip")

// ASNResult is the answer of an ASN lookup.
type ASNResult struct {
	ASN    string `json:"asn"`
	Prefix string `json:"prefix,omitempty"`
}

// Location is the answer of a geo lookup.
type Location struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Continent   string  `json:"continent"`
}

type ASNLookup interface {
	LookupASN(ctx context.Context, ip string) (ASNResult, error)
}

type GeoLookup interface {
	LookupGeo(ctx context.Context, ip string) (Location, error)
}

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("fc00::/7"),
}

// IsInvalid reports whether ip must be attributed to the Invalid bucket without any lookup:
// private, loopback and reserved ranges, 0.0.0.0, 1.1.1.1, and strings that are not
// addresses at all. Strings that look like addresses but fail to parse are left to the
// lookups, which will mark them unidentified.
//
// ip is taken verbatim, as the lookups see it; inventories trim their keys on decode.
func IsInvalid(ip string) bool {
	if !strings.ContainsAny(ip, ".:") {
		return true
	}
	if ip == "0.0.0.0" || ip == "1.1.1.1" {
		return true
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsUnspecified() {
		return true
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
