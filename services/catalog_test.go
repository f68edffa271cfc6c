package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.All(), 5)
	assert.Equal(t, "peakskitchen", c.Default().ID)

	pizza, ok := c.Get("pizza-palace")
	require.True(t, ok)
	assert.Len(t, pizza.Offers, 4)

	pizza.Offers[0] = "changed"
	again, _ := c.Get("pizza-palace")
	assert.Equal(t, "Free Pizza", again.Offers[0])
	assert.Equal(t, "unknown-id", c.Name("unknown-id"))
}

func TestParseCatalogSlugsMissingIDs(t *testing.T) {
	c, err := ParseCatalog([]byte(`
restaurants:
  - name: "Café Olé"
    offers: ["Free Coffee"]
`))
	require.NoError(t, err)
	assert.Equal(t, "cafe-ole", c.Default().ID)
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":     "restaurants: []",
		"duplicate": "restaurants:\n  - {id: a, name: A, offers: [x]}\n  - {id: a, name: B, offers: [y]}",
		"no offers": "restaurants:\n  - {id: a, name: A, offers: []}",
		"bad yaml":  "restaurants: [",
	}
	for name, doc := range cases {
		_, err := ParseCatalog([]byte(doc))
		assert.Error(t, err, name)
	}
}
