package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/tracking"
)

// Summary is one line of the completion output for a tracked entity.
type Summary struct {
	Kind            string  `json:"kind"`
	Name            string  `json:"name"`
	Nodes           int     `json:"nodes"`
	Places          int     `json:"places"`
	StakePercentage float64 `json:"stake_percentage"`
}

// Summaries returns the tracked providers then the tracked countries, each sorted by name.
func Summaries(report *analysis.ChainReport, tracked *tracking.Set) []Summary {
	totals := report.Totals()
	out := []Summary{}
	for _, p := range tracked.Providers {
		r := p.ExportReport(totals)
		out = append(out, Summary{Kind: "provider", Name: p.Name, Nodes: r.TotalNodes, Places: r.DatacenterCount, StakePercentage: r.StakePercentage})
	}
	for _, c := range tracked.Countries {
		r := c.ExportReport(totals)
		out = append(out, Summary{Kind: "country", Name: c.Name, Nodes: r.TotalNodes, Places: len(r.Cities), StakePercentage: r.StakePercentage})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == "provider"
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PrintSummaries writes the human readable completion output.
func PrintSummaries(w io.Writer, report *analysis.ChainReport, tracked *tracking.Set) {
	fmt.Fprintf(w, "%s: %d nodes analysed (%d unidentified ASNs, %d unidentified locations, %d invalid)\n",
		report.Chain, report.TotalNodes, len(report.UnidentifiedASNs), len(report.UnidentifiedLocations), len(report.InvalidIPs))
	for _, s := range Summaries(report, tracked) {
		unit := "datacenters"
		if s.Kind == "country" {
			unit = "cities"
		}
		fmt.Fprintf(w, "  %-8s %-24s %6d nodes in %3d %-11s %7.2f%% of stake\n", s.Kind, s.Name, s.Nodes, s.Places, unit, s.StakePercentage)
	}
}
