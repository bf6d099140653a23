// Package catalog holds the candidate resolver servers, grouped by region.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"github.com/tailscale/hujson"
	"go.uber.org/multierr"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
)

type Group struct {
	Name    string                   `json:"name"`
	Servers []domain.CandidateServer `json:"servers"`
}

// Catalog is an ordered list of groups. Declaration order is the
// tie-break order used by selection.
type Catalog struct {
	Groups []Group `json:"groups"`
}

var ErrEmpty = errors.New("catalog: no servers")

// Default is the built-in catalog.
func Default() *Catalog {
	return &Catalog{Groups: []Group{{
		Name: "Global",
		Servers: []domain.CandidateServer{
			{Label: "Google DNS", Address: "8.8.8.8"},
			{Label: "Google DNS (Backup)", Address: "8.8.4.4"},
			{Label: "Cloudflare DNS", Address: "1.1.1.1"},
			{Label: "Cloudflare DNS (Backup)", Address: "1.0.0.1"},
			{Label: "OpenDNS", Address: "208.67.222.222"},
			{Label: "OpenDNS (Backup)", Address: "208.67.220.220"},
			{Label: "Quad9", Address: "9.9.9.9"},
			{Label: "Quad9 (Backup)", Address: "149.112.112.112"},
			{Label: "AdGuard DNS", Address: "94.140.14.14"},
			{Label: "AdGuard DNS (Backup)", Address: "94.140.15.15"},
		},
	}}}
}

// Load reads a catalog file. Comments and trailing commas are accepted.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(std, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	for gi := range c.Groups {
		for si := range c.Groups[gi].Servers {
			s := &c.Groups[gi].Servers[si]
			s.Label = strings.TrimSpace(s.Label)
			s.Address = strings.TrimSpace(s.Address)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports every problem found, not just the first.
func (c *Catalog) Validate() error {
	var errs error
	seen := make(map[string]bool)
	n := 0
	for _, g := range c.Groups {
		for _, s := range g.Servers {
			n++
			if s.Label == "" {
				errs = multierr.Append(errs, fmt.Errorf("catalog: group %q: empty label", g.Name))
				continue
			}
			if seen[s.Label] {
				errs = multierr.Append(errs, fmt.Errorf("catalog: duplicate label %q", s.Label))
			}
			seen[s.Label] = true
			if _, err := netip.ParseAddr(s.Address); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("catalog: %q: bad address %q", s.Label, s.Address))
			}
		}
	}
	if n == 0 {
		errs = multierr.Append(errs, ErrEmpty)
	}
	return errs
}

// Servers flattens the groups in declaration order.
func (c *Catalog) Servers() []domain.CandidateServer {
	var out []domain.CandidateServer
	for _, g := range c.Groups {
		out = append(out, g.Servers...)
	}
	return out
}
