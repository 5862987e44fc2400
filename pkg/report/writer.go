// Package report writes the JSON documents of a run and reads them back for the query
// server.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/tracking"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Output categories, one directory each under <output>/<chain>.
const (
	CategoryNetwork     = "network"
	CategoryProviders   = "providers"
	CategoryCountries   = "countries"
	CategoryDiagnostics = "diagnostics"
)

// networkDocument replaces the diagnostic maps of the chain report with their sizes;
// the entries themselves go to the diagnostics file.
type networkDocument struct {
	*analysis.ChainReport
	UnidentifiedASNs      int `json:"unidentified_asns"`
	UnidentifiedLocations int `json:"unidentified_locations"`
	InvalidIPs            int `json:"invalid_ips"`
}

// Diagnostics lists the nodes a run could not attribute.
type Diagnostics struct {
	Chain                 string                          `json:"chain"`
	AnalysisDate          string                          `json:"analysis_date"`
	UnidentifiedASNs      map[string]inventory.NodeRecord `json:"unidentified_asns"`
	UnidentifiedLocations map[string]inventory.NodeRecord `json:"unidentified_locations"`
	InvalidIPs            []string                        `json:"invalid_ips"`
}

// Writer lays out one run as
//
//	<dir>/<chain>/network/NetworkDistribution_<MM-DD-YYYY>.json
//	<dir>/<chain>/providers/<Provider>_Nodes_<MM-DD-YYYY>.json
//	<dir>/<chain>/countries/<Country>_Nodes_<MM-DD-YYYY>.json
//	<dir>/<chain>/diagnostics/Unidentified_<MM-DD-YYYY>.json
type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// FileName returns the file of a document named name written on day.
func FileName(name string, day time.Time) string {
	return fmt.Sprintf("%s_%s.json", sanitize(name), day.Format(tracking.DateLayout))
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "-", "\\", "-", string(os.PathSeparator), "-").Replace(name)
}

// WriteAll writes every document of the run concurrently and returns the written paths
// in a stable order.
func (w *Writer) WriteAll(ctx context.Context, report *analysis.ChainReport, tracked *tracking.Set) ([]string, error) {
	day := w.now()
	base := filepath.Join(w.dir, report.Chain)
	totals := report.Totals()

	type job struct {
		path string
		doc  any
	}
	jobs := []job{
		{
			path: filepath.Join(base, CategoryNetwork, FileName("NetworkDistribution", day)),
			doc: networkDocument{
				ChainReport:           report,
				UnidentifiedASNs:      len(report.UnidentifiedASNs),
				UnidentifiedLocations: len(report.UnidentifiedLocations),
				InvalidIPs:            len(report.InvalidIPs),
			},
		},
		{
			path: filepath.Join(base, CategoryDiagnostics, FileName("Unidentified", day)),
			doc: Diagnostics{
				Chain:                 report.Chain,
				AnalysisDate:          report.AnalysisDate,
				UnidentifiedASNs:      report.UnidentifiedASNs,
				UnidentifiedLocations: report.UnidentifiedLocations,
				InvalidIPs:            report.InvalidIPs,
			},
		},
	}
	if tracked != nil {
		for _, p := range tracked.Providers {
			jobs = append(jobs, job{
				path: filepath.Join(base, CategoryProviders, FileName(p.Name+"_Nodes", day)),
				doc:  p.ExportReport(totals),
			})
		}
		for _, c := range tracked.Countries {
			jobs = append(jobs, job{
				path: filepath.Join(base, CategoryCountries, FileName(c.Name+"_Nodes", day)),
				doc:  c.ExportReport(totals),
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeJSON(j.path, j.doc)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("write reports for %s: %w", report.Chain, err)
	}

	paths := make([]string, 0, len(jobs))
	for _, j := range jobs {
		paths = append(paths, j.path)
	}
	sort.Strings(paths)
	w.logger.Info("reports written", zap.String("chain", report.Chain), zap.Int("files", len(paths)))
	return paths, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	bz, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, bz, 0o644)
}
