package targets

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	TeamSalesEnterprise = "Sales_Enterprise"
	TeamSalesPro        = "Sales_Pro"
	TeamBDR             = "BDR"
)

type Team struct {
	Key     string `yaml:"key" json:"value"`
	Display string `yaml:"display" json:"label"`
}

// Catalog is the closed set of teams a target may belong to.
type Catalog struct {
	Teams []Team `yaml:"teams" json:"teams"`
}

// LoadCatalog reads a YAML catalog. An empty path yields the default teams.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Teams) == 0 {
		return Catalog{}, fmt.Errorf("teams catalog empty")
	}
	seen := make(map[string]bool, len(cat.Teams))
	for i, team := range cat.Teams {
		if team.Key == "" {
			return Catalog{}, fmt.Errorf("teams catalog entry %d has no key", i)
		}
		if seen[team.Key] {
			return Catalog{}, fmt.Errorf("teams catalog lists %q twice", team.Key)
		}
		seen[team.Key] = true
		if team.Display == "" {
			cat.Teams[i].Display = team.Key
		}
	}
	return cat, nil
}

// Contains matches keys exactly; team values are stored verbatim.
func (c Catalog) Contains(key string) bool {
	for _, team := range c.Teams {
		if team.Key == key {
			return true
		}
	}
	return false
}

func (c Catalog) Display(key string) string {
	for _, team := range c.Teams {
		if team.Key == key {
			return team.Display
		}
	}
	return key
}

func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c.Teams))
	for _, team := range c.Teams {
		keys = append(keys, team.Key)
	}
	return keys
}

func DefaultCatalog() Catalog {
	return Catalog{Teams: []Team{
		{Key: TeamSalesEnterprise, Display: "Sales Enterprise"},
		{Key: TeamSalesPro, Display: "Sales Pro"},
		{Key: TeamBDR, Display: "BDR"},
	}}
}
