package lookup

import (
	"strings"
	"sync"

	"github.com/pariz/gountries"
)

var (
	countryQueryOnce sync.Once
	countryQuery     *gountries.Query
)

func countries() *gountries.Query {
	countryQueryOnce.Do(func() { countryQuery = gountries.New() })
	return countryQuery
}

// ContinentOf returns the continent of an ISO alpha-2 country code, or "" when unknown.
func ContinentOf(code string) string {
	c, err := countries().FindCountryByAlpha(strings.ToUpper(code))
	if err != nil {
		return ""
	}
	if c.Continent != "" {
		return c.Continent
	}
	return c.Region
}

// CountryNameOf returns the common English name of an ISO alpha-2 code, or "" when unknown.
func CountryNameOf(code string) string {
	c, err := countries().FindCountryByAlpha(strings.ToUpper(code))
	if err != nil {
		return ""
	}
	return c.Name.Common
}
