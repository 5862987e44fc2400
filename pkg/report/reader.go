package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/canopy-network/nodedist/pkg/tracking"
)

// ErrNoReport is returned when no document matches.
var ErrNoReport = errors.New("no report found")

// Reader serves the newest documents from an output directory.
type Reader struct {
	dir string
}

func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// Chains lists the chains that have a network report.
func (r *Reader) Chains() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.dir, e.Name(), CategoryNetwork)); err == nil {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Network returns the newest network distribution of chain.
func (r *Reader) Network(chain string) (json.RawMessage, error) {
	return r.latest(chain, CategoryNetwork, "NetworkDistribution")
}

// Provider returns the newest report of a tracked provider by display name.
func (r *Reader) Provider(chain, name string) (json.RawMessage, error) {
	return r.latest(chain, CategoryProviders, name+"_Nodes")
}

// Country returns the newest report of a tracked country by display name.
func (r *Reader) Country(chain, name string) (json.RawMessage, error) {
	return r.latest(chain, CategoryCountries, name+"_Nodes")
}

// Diagnostics returns the newest unidentified-node listing of chain.
func (r *Reader) Diagnostics(chain string) (json.RawMessage, error) {
	return r.latest(chain, CategoryDiagnostics, "Unidentified")
}

// latest picks the file <prefix>_<MM-DD-YYYY>.json with the greatest date.
func (r *Reader) latest(chain, category, prefix string) (json.RawMessage, error) {
	if strings.ContainsAny(chain, `/\`) || strings.Contains(chain, "..") {
		return nil, fmt.Errorf("%w: bad chain %q", ErrNoReport, chain)
	}
	dir := filepath.Join(r.dir, chain, category)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, err
	}

	want := sanitize(prefix) + "_"
	var (
		best     string
		bestDate time.Time
	)
	for _, e := range entries {
		name := e.Name()
		rest, ok := strings.CutPrefix(name, want)
		if !ok || !strings.HasSuffix(rest, ".json") {
			continue
		}
		day, err := time.Parse(tracking.DateLayout, strings.TrimSuffix(rest, ".json"))
		if err != nil {
			continue
		}
		if best == "" || day.After(bestDate) {
			best, bestDate = name, day
		}
	}
	if best == "" {
		return nil, ErrNoReport
	}
	bz, err := os.ReadFile(filepath.Join(dir, best))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(bz), nil
}
