package scanner

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Watchlist is the optional YAML instrument file. When configured it
// replaces the TICKERS env list and may override parts of the alert
// policy. Example:
//
//	symbols: [AAPL, MSFT, NVDA]
//	groups:
//	  semis: [NVDA, AMD, AVGO]
//	alerts:
//	  enabled: true
//	  emit_on: [BUY]
//	  fire_once: true
type Watchlist struct {
	Symbols []string            `yaml:"symbols"`
	Groups  map[string][]string `yaml:"groups"`
	Alerts  *WatchlistAlerts    `yaml:"alerts"`
}

// WatchlistAlerts overrides the env-derived alert policy. Nil pointer
// fields mean "not specified, keep the env value".
type WatchlistAlerts struct {
	Enabled  *bool    `yaml:"enabled"`
	EmitOn   []string `yaml:"emit_on"`
	FireOnce *bool    `yaml:"fire_once"`
}

// LoadWatchlist reads and parses the YAML watchlist at path.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watchlist: read %s: %w", path, err)
	}
	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("watchlist: parse %s: %w", path, err)
	}
	return &wl, nil
}

// Resolve returns the symbols for the named group, or the union of the
// top-level list and every group when group is empty. First occurrence
// order is preserved, duplicates dropped.
func (w *Watchlist) Resolve(group string) []string {
	if group != "" {
		return dedupSymbols(w.Groups[group])
	}
	all := append([]string{}, w.Symbols...)
	for _, name := range sortedGroupNames(w.Groups) {
		all = append(all, w.Groups[name]...)
	}
	return dedupSymbols(all)
}

func sortedGroupNames(groups map[string][]string) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dedupSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
