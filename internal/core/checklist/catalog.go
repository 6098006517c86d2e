package checklist

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed checklist.json
var catalogData []byte

// Item is one prose question of a part's deep-dive checklist.
type Item struct {
	Text string
}

func (i *Item) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &i.Text)
}

func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Text)
}

// Part is one of the ten fixed analysis topics. Static and read-only at
// runtime.
type Part struct {
	Number              int      `json:"partNumber"`
	Title               string   `json:"partTitle"`
	CoreQuestion        string   `json:"coreQuestion"`
	TopRiskPattern      string   `json:"topRiskPattern"`
	CrossClauseAnalysis []string `json:"crossClauseAnalysis"`
	DeepDiveChecklist   []Item   `json:"deepDiveChecklist"`
}

// Catalog is the versioned checklist asset, validated at load.
type Catalog struct {
	Version string `json:"version"`
	Parts   []Part `json:"analysisParts"`
}

// Load parses and validates the embedded catalog.
func Load() (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(catalogData, &c); err != nil {
		return nil, fmt.Errorf("parse checklist catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid checklist catalog: %w", err)
	}
	sort.Slice(c.Parts, func(i, j int) bool { return c.Parts[i].Number < c.Parts[j].Number })
	return &c, nil
}

func (c *Catalog) validate() error {
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("missing version")
	}
	if len(c.Parts) != 10 {
		return fmt.Errorf("expected 10 parts, got %d", len(c.Parts))
	}
	seen := make(map[int]bool)
	for _, p := range c.Parts {
		if p.Number < 1 || p.Number > 10 {
			return fmt.Errorf("part number %d out of range", p.Number)
		}
		if seen[p.Number] {
			return fmt.Errorf("duplicate part number %d", p.Number)
		}
		seen[p.Number] = true
		if strings.TrimSpace(p.Title) == "" {
			return fmt.Errorf("part %d: missing title", p.Number)
		}
		if strings.TrimSpace(p.CoreQuestion) == "" {
			return fmt.Errorf("part %d: missing core question", p.Number)
		}
		if strings.TrimSpace(p.TopRiskPattern) == "" {
			return fmt.Errorf("part %d: missing top risk pattern", p.Number)
		}
		if len(p.DeepDiveChecklist) == 0 {
			return fmt.Errorf("part %d: empty checklist", p.Number)
		}
		for i, item := range p.DeepDiveChecklist {
			if strings.TrimSpace(item.Text) == "" {
				return fmt.Errorf("part %d: empty checklist item %d", p.Number, i)
			}
		}
	}
	return nil
}

// Part returns the part with the given number, or nil when absent.
func (c *Catalog) Part(number int) *Part {
	for i := range c.Parts {
		if c.Parts[i].Number == number {
			return &c.Parts[i]
		}
	}
	return nil
}

// PartNumbers lists all part numbers in ascending order.
func (c *Catalog) PartNumbers() []int {
	nums := make([]int, len(c.Parts))
	for i, p := range c.Parts {
		nums[i] = p.Number
	}
	return nums
}
