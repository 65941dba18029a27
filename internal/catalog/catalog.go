// Package catalog loads card definitions and deck lists from YAML.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/peterkuimelis/duelcore/internal/game"
)

// CardFile is the top-level structure of a card YAML file.
type CardFile struct {
	Cards []*game.Definition `yaml:"cards"`
}

// Catalog is an immutable set of card definitions keyed by id. It
// satisfies game.Catalog.
type Catalog struct {
	defs   map[string]*game.Definition
	byName map[string]string
}

// New builds a catalog from already-parsed definitions. Every definition is
// validated; duplicate ids are rejected.
func New(defs ...*game.Definition) (*Catalog, error) {
	c := &Catalog{
		defs:   make(map[string]*game.Definition, len(defs)),
		byName: make(map[string]string, len(defs)),
	}
	var errs []error
	for _, d := range defs {
		if d == nil {
			continue
		}
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.defs[d.ID]; dup {
			errs = append(errs, fmt.Errorf("card %q: duplicate id", d.ID))
			continue
		}
		c.defs[d.ID] = d
		c.byName[strings.ToLower(d.Name)] = d.ID
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", game.ErrIntegrity, errors.Join(errs...))
	}
	return c, nil
}

// Parse reads a card YAML document.
func Parse(r io.Reader) (*Catalog, error) {
	var cf CardFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("parse card YAML: %w", err)
	}
	return New(cf.Cards...)
}

// Load reads a card YAML file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Definition implements game.Catalog.
func (c *Catalog) Definition(id string) (*game.Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// Lookup resolves a card by id or, failing that, by case-insensitive name.
func (c *Catalog) Lookup(ref string) (*game.Definition, bool) {
	if d, ok := c.defs[ref]; ok {
		return d, true
	}
	if id, ok := c.byName[strings.ToLower(ref)]; ok {
		return c.defs[id], true
	}
	return nil, false
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// All returns every definition sorted by id.
func (c *Catalog) All() []*game.Definition {
	out := make([]*game.Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
