package catalog

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/duelcore/internal/game"
)

const sampleCards = `
cards:
  - id: elf
    name: Gemini Elf
    cardType: monster
    level: 4
    attack: 1900
    defense: 900
  - id: pot
    name: Pot of Greed
    cardType: spell
    spellType: normal
    ability:
      effects:
        - type: draw
          trigger: manual
          value: 2
`

func repoFile(t *testing.T, name string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", name)
}

func TestParseCards(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleCards))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	pot, ok := c.Definition("pot")
	require.True(t, ok)
	require.Len(t, pot.Ability.Effects, 1)
	assert.Equal(t, game.EffectDraw, pot.Ability.Effects[0].Kind)
	assert.Equal(t, game.TriggerManual, pot.Ability.Effects[0].Trigger)
	assert.Equal(t, 2, pot.Ability.Effects[0].Value)

	elf, ok := c.Lookup("gemini elf")
	require.True(t, ok)
	assert.Equal(t, "elf", elf.ID)
}

func TestParseRejectsUnknownEffectKind(t *testing.T) {
	doc := strings.Replace(sampleCards, "type: draw", "type: teleport", 1)
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestParseRejectsInvalidDefinitions(t *testing.T) {
	doc := `
cards:
  - id: nameless
    cardType: monster
    level: 4
  - id: dup
    name: A
    cardType: trap
    trapType: normal
  - id: dup
    name: B
    cardType: trap
    trapType: normal
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, game.ErrIntegrity))
	assert.Contains(t, err.Error(), "missing name")
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	doc := strings.Replace(sampleCards, "level: 4", "level: 4\n    flavor: sparkly", 1)
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
}

func TestParseDecks(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleCards))
	require.NoError(t, err)

	decks, err := c.ParseDecks([]byte(`
decks:
  - name: Test
    cards:
      - { card: elf, count: 3 }
      - { card: Pot of Greed, count: 1 }
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Test"}, decks.Names())

	name, ids, err := decks.ByNumber(1)
	require.NoError(t, err)
	assert.Equal(t, "Test", name)
	assert.Equal(t, []string{"elf", "elf", "elf", "pot"}, ids)

	_, _, err = decks.ByNumber(2)
	assert.Error(t, err)
}

func TestParseDecksUnknownCard(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleCards))
	require.NoError(t, err)
	_, err = c.ParseDecks([]byte("decks:\n  - name: X\n    cards:\n      - { card: ghost, count: 1 }\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestShippedCatalogAndDecks(t *testing.T) {
	c, err := Load(repoFile(t, "cards.yaml"))
	require.NoError(t, err)

	decks, err := c.LoadDecks(repoFile(t, "decks.yaml"))
	require.NoError(t, err)
	for _, name := range decks.Names() {
		ids, ok := decks.Deck(name)
		require.True(t, ok)
		assert.GreaterOrEqual(t, len(ids), 40, name)
	}
}
