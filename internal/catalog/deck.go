package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeckFile represents the top-level YAML structure.
type DeckFile struct {
	Decks []DeckEntry `yaml:"decks"`
}

// DeckEntry represents a single deck in the YAML file.
type DeckEntry struct {
	Name  string      `yaml:"name"`
	Cards []CardEntry `yaml:"cards"`
}

// CardEntry is a card reference (id or name) and its count in a deck.
type CardEntry struct {
	Card  string `yaml:"card"`
	Count int    `yaml:"count"`
}

// Decks holds named deck lists resolved to definition ids.
type Decks struct {
	order []string
	lists map[string][]string
}

// ParseDecks resolves a deck document against the catalog. Unknown card
// references are errors.
func (c *Catalog) ParseDecks(data []byte) (*Decks, error) {
	var df DeckFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse deck YAML: %w", err)
	}
	decks := &Decks{lists: make(map[string][]string, len(df.Decks))}
	for _, deck := range df.Decks {
		if _, dup := decks.lists[deck.Name]; dup {
			return nil, fmt.Errorf("deck %q defined twice", deck.Name)
		}
		var ids []string
		for _, entry := range deck.Cards {
			d, ok := c.Lookup(entry.Card)
			if !ok {
				return nil, fmt.Errorf("deck %q: unknown card %q", deck.Name, entry.Card)
			}
			if entry.Count < 1 {
				return nil, fmt.Errorf("deck %q: card %q has count %d", deck.Name, entry.Card, entry.Count)
			}
			for i := 0; i < entry.Count; i++ {
				ids = append(ids, d.ID)
			}
		}
		decks.order = append(decks.order, deck.Name)
		decks.lists[deck.Name] = ids
	}
	return decks, nil
}

// LoadDecks reads a deck YAML file.
func (c *Catalog) LoadDecks(path string) (*Decks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.ParseDecks(data)
}

// Names lists decks in file order.
func (d *Decks) Names() []string {
	return append([]string(nil), d.order...)
}

// Deck returns a copy of the named deck list.
func (d *Decks) Deck(name string) ([]string, bool) {
	ids, ok := d.lists[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), ids...), true
}

// ByNumber returns the Nth deck (1-indexed).
func (d *Decks) ByNumber(n int) (string, []string, error) {
	if n < 1 || n > len(d.order) {
		return "", nil, fmt.Errorf("deck %d not found (have %d decks)", n, len(d.order))
	}
	name := d.order[n-1]
	ids, _ := d.Deck(name)
	return name, ids, nil
}
