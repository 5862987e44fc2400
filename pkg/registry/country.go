package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/canopy-network/nodedist/pkg/utils"
)

// CountryConfigFile is the country registry file name inside the config dir.
const CountryConfigFile = "CountryConfig.json"

// ErrUnknownCountry is returned when a requested ISO code is not configured.
var ErrUnknownCountry = errors.New("unknown ISO alpha-2 country code")

// CountryRegistry maps ISO alpha-2 codes to display names.
type CountryRegistry struct {
	names map[string]string
}

func NewCountryRegistry(names map[string]string) *CountryRegistry {
	r := &CountryRegistry{names: make(map[string]string, len(names))}
	for code, name := range names {
		r.names[strings.ToUpper(strings.TrimSpace(code))] = name
	}
	return r
}

// LoadCountryRegistry reads a CountryConfig.json file.
func LoadCountryRegistry(path string) (*CountryRegistry, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read country config: %w", err)
	}
	names := map[string]string{}
	if err := json.Unmarshal(bz, &names); err != nil {
		return nil, fmt.Errorf("parse country config %s: %w", path, err)
	}
	return NewCountryRegistry(names), nil
}

func (r *CountryRegistry) Name(code string) (string, bool) {
	name, ok := r.names[strings.ToUpper(code)]
	return name, ok
}

func (r *CountryRegistry) Len() int { return len(r.names) }

// ResolveCodes maps requested ISO codes (any case) to country names.
func (r *CountryRegistry) ResolveCodes(codes []string) (map[string]string, error) {
	out := make(map[string]string, len(codes))
	for _, c := range codes {
		key := strings.ToUpper(strings.TrimSpace(c))
		name, ok := r.names[key]
		if !ok {
			return nil, fmt.Errorf("%w %q, valid codes are %v", ErrUnknownCountry, c, utils.SortedKeys(r.names))
		}
		out[key] = name
	}
	return out, nil
}
