package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Collection methods reported by the scrapers.
const (
	CollectionCrawl = "crawl"
	CollectionAPI   = "api"
	CollectionCLI   = "cli"
)

// SampleFile is shipped next to the chain inventories and never analysed.
const SampleFile = "sample.json"

// ErrMissingNodes is returned for a document without a "nodes" key.
var ErrMissingNodes = errors.New("inventory document has no \"nodes\" key")

// Document is the per-chain node inventory produced by a scraper.
type Document struct {
	Timestamp        string         `json:"timestamp"`
	CollectionMethod string         `json:"collection_method"`
	ChainData        map[string]any `json:"chain_data"`
	Nodes            Nodes          `json:"nodes"`
}

// Decode reads one document from r.
func Decode(r io.Reader) (*Document, error) {
	var raw struct {
		Timestamp        string         `json:"timestamp"`
		CollectionMethod string         `json:"collection_method"`
		ChainData        map[string]any `json:"chain_data"`
		Nodes            *Nodes         `json:"nodes"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}
	if raw.Nodes == nil {
		return nil, ErrMissingNodes
	}
	return &Document{
		Timestamp:        raw.Timestamp,
		CollectionMethod: raw.CollectionMethod,
		ChainData:        raw.ChainData,
		Nodes:            *raw.Nodes,
	}, nil
}

// Load reads <dir>/<chain>.json.
func Load(dir, chain string) (*Document, error) {
	path := Path(dir, chain)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Path returns the inventory file for chain.
func Path(dir, chain string) string {
	return filepath.Join(dir, chain+".json")
}

// ListChains returns the chain names that have an inventory in dir, sorted.
func ListChains(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list inventories in %s: %w", dir, err)
	}
	chains := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == SampleFile || !strings.HasSuffix(name, ".json") {
			continue
		}
		chains = append(chains, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(chains)
	return chains, nil
}
