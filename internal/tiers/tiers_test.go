package tiers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForScore_DefaultCatalog(t *testing.T) {
	c := Default()
	cases := map[int64]uint8{
		-5:  0,
		0:   0,
		299: 0,
		399: 0,
		400: 1,
		499: 1,
		500: 2,
		600: 3,
		699: 3,
		700: 4,
		800: 4,
	}
	for score, want := range cases {
		assert.Equal(t, want, c.ForScore(score), "score %d", score)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	_, err = New([]Tier{{ID: 0, MinScore: 100}, {ID: 0, MinScore: 200}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tier id")

	_, err = New([]Tier{{ID: 0, MinScore: 300}, {ID: 1, MinScore: 300}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must exceed")

	c, err := New([]Tier{{ID: 1, MinScore: 500}, {ID: 0, MinScore: 100}})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), c.Tiers()[0].ID, "catalog is ordered by id")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tiers:
  - id: 0
    name: Starter
    min_score: 0
    uri: ipfs://starter
  - id: 1
    name: Prime
    min_score: 650
    uri: ipfs://prime
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), c.ForScore(700))
	assert.Equal(t, uint8(0), c.ForScore(649))

	tier, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "ipfs://prime", tier.MetadataURI)

	_, ok = c.Get(7)
	assert.False(t, ok)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.Tiers(), 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMarkdownTable(t *testing.T) {
	out, err := Default().MarkdownTable()
	require.NoError(t, err)
	assert.Contains(t, out, "Min score")
	assert.Contains(t, out, "ipfs://QmTier4AAA")
	assert.Contains(t, out, "AAA")
}
