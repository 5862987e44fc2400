package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/canopy-network/nodedist/pkg/utils"
)

// ProviderConfigFile is the provider registry file name inside the config dir.
const ProviderConfigFile = "ProviderConfig.json"

// ErrUnknownProvider is returned when a requested short code is not configured.
var ErrUnknownProvider = errors.New("unknown provider short code")

// ProviderEntry is one ProviderConfig.json value. Entries with a Short code can be
// tracked in detail.
type ProviderEntry struct {
	Provider string `json:"provider"`
	Short    string `json:"short,omitempty"`
}

// ProviderRegistry maps autonomous system numbers to named infrastructure providers.
type ProviderRegistry struct {
	byASN   map[string]ProviderEntry
	byShort map[string]string
}

// NewProviderRegistry builds a registry from asn -> entry pairs. ASNs may carry an "AS" prefix.
func NewProviderRegistry(entries map[string]ProviderEntry) *ProviderRegistry {
	r := &ProviderRegistry{
		byASN:   make(map[string]ProviderEntry, len(entries)),
		byShort: map[string]string{},
	}
	for asn, e := range entries {
		r.byASN[NormalizeASN(asn)] = e
		if e.Short != "" {
			r.byShort[strings.ToUpper(e.Short)] = e.Provider
		}
	}
	return r
}

// LoadProviderRegistry reads a ProviderConfig.json file.
func LoadProviderRegistry(path string) (*ProviderRegistry, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider config: %w", err)
	}
	entries := map[string]ProviderEntry{}
	if err := json.Unmarshal(bz, &entries); err != nil {
		return nil, fmt.Errorf("parse provider config %s: %w", path, err)
	}
	return NewProviderRegistry(entries), nil
}

// NormalizeASN strips an optional "AS" prefix and surrounding blanks.
func NormalizeASN(asn string) string {
	asn = strings.TrimSpace(asn)
	if len(asn) > 2 && strings.EqualFold(asn[:2], "AS") {
		asn = asn[2:]
	}
	return asn
}

// Resolve returns the canonical provider name for asn.
func (r *ProviderRegistry) Resolve(asn string) (string, bool) {
	e, ok := r.byASN[NormalizeASN(asn)]
	if !ok {
		return "", false
	}
	return e.Provider, true
}

// Len returns the number of configured ASNs.
func (r *ProviderRegistry) Len() int { return len(r.byASN) }

// Trackable returns the upper-cased short code -> provider name pairs.
func (r *ProviderRegistry) Trackable() map[string]string {
	out := make(map[string]string, len(r.byShort))
	for k, v := range r.byShort {
		out[k] = v
	}
	return out
}

// ResolveShorts maps requested short codes (any case) to provider names.
func (r *ProviderRegistry) ResolveShorts(shorts []string) (map[string]string, error) {
	out := make(map[string]string, len(shorts))
	for _, s := range shorts {
		key := strings.ToUpper(strings.TrimSpace(s))
		name, ok := r.byShort[key]
		if !ok {
			return nil, fmt.Errorf("%w %q, valid providers are %v", ErrUnknownProvider, s, utils.SortedKeys(r.byShort))
		}
		out[key] = name
	}
	return out, nil
}
