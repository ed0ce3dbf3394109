// Package tiers holds the credit tier catalog: the discrete bands a score maps
// into. The authoritative table lives on-chain and is managed by the
// administrative capability; this catalog mirrors it for scoring and display.
package tiers

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fbiville/markdown-table-formatter/pkg/markdown"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Tier is one credit band.
type Tier struct {
	ID          uint8  `yaml:"id" json:"tierId"`
	Name        string `yaml:"name" json:"name"`
	MinScore    uint64 `yaml:"min_score" json:"minScore"`
	MetadataURI string `yaml:"uri" json:"metadataURI"`
}

// Catalog is an immutable, validated set of tiers ordered by MinScore.
type Catalog struct {
	tiers []Tier
}

// defaultTiers is the deployment's five-tier table.
var defaultTiers = []Tier{
	{ID: 0, Name: "BB", MinScore: 300, MetadataURI: "ipfs://QmTier0BB"},
	{ID: 1, Name: "BBB", MinScore: 400, MetadataURI: "ipfs://QmTier1BBB"},
	{ID: 2, Name: "A", MinScore: 500, MetadataURI: "ipfs://QmTier2A"},
	{ID: 3, Name: "AA", MinScore: 600, MetadataURI: "ipfs://QmTier3AA"},
	{ID: 4, Name: "AAA", MinScore: 700, MetadataURI: "ipfs://QmTier4AAA"},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultTiers)
	if err != nil {
		panic(fmt.Sprintf("default tier catalog is invalid: %v", err))
	}
	return c
}

// New validates tiers and returns a catalog. Tier ids must be unique and
// MinScore must strictly increase with the id.
func New(tiers []Tier) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier catalog cannot be empty")
	}
	sorted := slices.Clone(tiers)
	slices.SortFunc(sorted, func(a, b Tier) int { return int(a.ID) - int(b.ID) })

	if dups := lo.FindDuplicatesBy(sorted, func(t Tier) uint8 { return t.ID }); len(dups) > 0 {
		return nil, fmt.Errorf("duplicate tier id %d", dups[0].ID)
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinScore <= sorted[i-1].MinScore {
			return nil, fmt.Errorf("tier %d min_score %d must exceed tier %d min_score %d",
				sorted[i].ID, sorted[i].MinScore, sorted[i-1].ID, sorted[i-1].MinScore)
		}
	}
	return &Catalog{tiers: sorted}, nil
}

type catalogFile struct {
	Tiers []Tier `yaml:"tiers"`
}

// LoadFile reads a YAML catalog of the form
//
//	tiers:
//	  - id: 0
//	    name: BB
//	    min_score: 300
//	    uri: ipfs://...
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tier file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tier file: %w", err)
	}
	return New(f.Tiers)
}

// Load returns the catalog at path, or the default catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Tiers returns a copy of the catalog in ascending order.
func (c *Catalog) Tiers() []Tier {
	return slices.Clone(c.tiers)
}

// ForScore returns the id of the highest tier whose MinScore is at most score.
// Scores below every threshold map to the lowest tier.
func (c *Catalog) ForScore(score int64) uint8 {
	best := c.tiers[0].ID
	if score < 0 {
		return best
	}
	for _, t := range c.tiers {
		if uint64(score) >= t.MinScore {
			best = t.ID
		}
	}
	return best
}

// Get looks a tier up by id.
func (c *Catalog) Get(id uint8) (Tier, bool) {
	return lo.Find(c.tiers, func(t Tier) bool { return t.ID == id })
}

// MarkdownTable renders the catalog for terminal output.
func (c *Catalog) MarkdownTable() (string, error) {
	rows := lo.Map(c.tiers, func(t Tier, _ int) []string {
		return []string{strconv.Itoa(int(t.ID)), t.Name, strconv.FormatUint(t.MinScore, 10), t.MetadataURI}
	})
	return markdown.NewTableFormatterBuilder().
		WithPrettyPrint().
		Build("Tier", "Name", "Min score", "Metadata URI").
		Format(rows)
}
