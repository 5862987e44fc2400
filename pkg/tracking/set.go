package tracking

import "time"

// Set holds a run's tracked providers, keyed by canonical provider name, and tracked
// countries, keyed by ISO code.
type Set struct {
	Providers map[string]*Provider
	Countries map[string]*Country
}

func NewSet() *Set {
	return &Set{Providers: map[string]*Provider{}, Countries: map[string]*Country{}}
}

func (s *Set) AddProvider(p *Provider) { s.Providers[p.Name] = p }

func (s *Set) AddCountry(c *Country) { s.Countries[c.Code] = c }

func (s *Set) Provider(name string) (*Provider, bool) {
	p, ok := s.Providers[name]
	return p, ok
}

func (s *Set) Country(code string) (*Country, bool) {
	c, ok := s.Countries[code]
	return c, ok
}

// Stamp sets the analysis date on every tracked entity.
func (s *Set) Stamp(at time.Time) {
	for _, p := range s.Providers {
		p.AnalysisDate = at
	}
	for _, c := range s.Countries {
		c.AnalysisDate = at
	}
}
