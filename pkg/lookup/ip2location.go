package lookup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ip2location/ip2location-go/v9"
)

// IP2LocationGeo answers geo lookups from a local IP2Location BIN database.
type IP2LocationGeo struct {
	mu sync.Mutex
	db *ip2location.DB
}

// OpenIP2Location opens the BIN database at path.
func OpenIP2Location(path string) (*IP2LocationGeo, error) {
	db, err := ip2location.OpenDB(path)
	if err != nil {
		return nil, fmt.Errorf("open ip2location db %s: %w", path, err)
	}
	return &IP2LocationGeo{db: db}, nil
}

func (g *IP2LocationGeo) LookupGeo(_ context.Context, ip string) (Location, error) {
	start := time.Now()
	g.mu.Lock()
	rec, err := g.db.Get_all(ip)
	g.mu.Unlock()
	lookupDuration.WithLabelValues(kindGeo).Observe(time.Since(start).Seconds())

	if err == nil && !usableField(rec.Country_short) {
		err = ErrNoLocation
	}
	observeOutcome(kindGeo, err)
	if err != nil {
		return Location{}, fmt.Errorf("geo lookup %s: %w", ip, err)
	}

	code := strings.ToUpper(rec.Country_short)
	loc := Location{
		Country:     rec.Country_long,
		CountryCode: code,
		City:        cleanField(rec.City),
		Region:      cleanField(rec.Region),
		Latitude:    float64(rec.Latitude),
		Longitude:   float64(rec.Longitude),
		Continent:   ContinentOf(code),
	}
	if name := CountryNameOf(code); loc.Country == "" && name != "" {
		loc.Country = name
	}
	return loc, nil
}

func (g *IP2LocationGeo) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.db.Close()
}

// usableField filters the placeholders IP2Location returns for unknown ranges or
// fields missing from the loaded database edition.
func usableField(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return false
	}
	return !strings.Contains(s, "unavailable") && !strings.HasPrefix(s, "Invalid")
}

func cleanField(s string) string {
	if !usableField(s) {
		return ""
	}
	return s
}
