// Package state persists tracked providers, tracked countries and the last chain report
// between runs.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/tracking"
)

// ErrNotFound is returned when nothing was saved under a key.
var ErrNotFound = errors.New("state not found")

// Kinds of persisted objects.
const (
	KindProvider = "provider"
	KindCountry  = "country"
	KindReport   = "report"
)

// Key addresses one persisted object.
type Key struct {
	Chain string
	Kind  string
	Name  string
}

func ProviderKey(chain, short string) Key { return Key{Chain: chain, Kind: KindProvider, Name: short} }

func CountryKey(chain, code string) Key { return Key{Chain: chain, Kind: KindCountry, Name: code} }

func ReportKey(chain string) Key { return Key{Chain: chain, Kind: KindReport, Name: chain} }

// Store saves and loads JSON documents by key.
type Store interface {
	Get(ctx context.Context, key Key, out any) error
	Put(ctx context.Context, key Key, v any) error
}

// LoadProvider returns the saved provider, or ErrNotFound.
func LoadProvider(ctx context.Context, s Store, chain, short string) (*tracking.Provider, error) {
	var p tracking.Provider
	if err := s.Get(ctx, ProviderKey(chain, short), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func LoadCountry(ctx context.Context, s Store, chain, code string) (*tracking.Country, error) {
	var c tracking.Country
	if err := s.Get(ctx, CountryKey(chain, code), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func LoadReport(ctx context.Context, s Store, chain string) (*analysis.ChainReport, error) {
	var r analysis.ChainReport
	if err := s.Get(ctx, ReportKey(chain), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveRun persists the report and every tracked entity of one run.
func SaveRun(ctx context.Context, s Store, report *analysis.ChainReport, tracked *tracking.Set) error {
	if err := s.Put(ctx, ReportKey(report.Chain), report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	for _, p := range tracked.Providers {
		if err := s.Put(ctx, ProviderKey(report.Chain, p.Short), p); err != nil {
			return fmt.Errorf("save provider %s: %w", p.Short, err)
		}
	}
	for _, c := range tracked.Countries {
		if err := s.Put(ctx, CountryKey(report.Chain, c.Code), c); err != nil {
			return fmt.Errorf("save country %s: %w", c.Code, err)
		}
	}
	return nil
}
