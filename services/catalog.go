// services/catalog.go
package services

import (
	_ "embed"
	"fmt"
	"os"

	"spinwin/models"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

//go:embed restaurants.yaml
var defaultCatalog []byte

type catalogFile struct {
	Restaurants []models.Restaurant `yaml:"restaurants"`
	Default     string              `yaml:"default"`
}

// Catalog is the immutable set of restaurants loaded at startup.
type Catalog struct {
	order     []string
	byID      map[string]models.Restaurant
	defaultID string
}

// LoadCatalog reads path, or the embedded catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read restaurants file: %w", err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog. Entries without an id get slug(name).
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse restaurants: %w", err)
	}
	if len(file.Restaurants) == 0 {
		return nil, fmt.Errorf("restaurant catalog is empty")
	}

	c := &Catalog{byID: make(map[string]models.Restaurant, len(file.Restaurants))}
	for _, r := range file.Restaurants {
		if r.ID == "" {
			r.ID = slug.Make(r.Name)
		}
		if r.ID == "" {
			return nil, fmt.Errorf("restaurant %q has no usable id", r.Name)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate restaurant id %q", r.ID)
		}
		if len(r.Offers) == 0 {
			return nil, fmt.Errorf("restaurant %q: %w", r.ID, ErrNoOffers)
		}
		r.Offers = append([]string(nil), r.Offers...)
		c.byID[r.ID] = r
		c.order = append(c.order, r.ID)
	}

	c.defaultID = file.Default
	if _, ok := c.byID[c.defaultID]; !ok {
		c.defaultID = c.order[0]
	}
	return c, nil
}

// Get returns a copy so callers cannot mutate the catalog.
func (c *Catalog) Get(id string) (models.Restaurant, bool) {
	r, ok := c.byID[id]
	if !ok {
		return models.Restaurant{}, false
	}
	r.Offers = append([]string(nil), r.Offers...)
	return r, true
}

func (c *Catalog) Default() models.Restaurant {
	r, _ := c.Get(c.defaultID)
	return r
}

func (c *Catalog) All() []models.Restaurant {
	out := make([]models.Restaurant, 0, len(c.order))
	for _, id := range c.order {
		r, _ := c.Get(id)
		out = append(out, r)
	}
	return out
}

// Name returns the display name for id, or id itself when unknown.
func (c *Catalog) Name(id string) string {
	if r, ok := c.byID[id]; ok {
		return r.Name
	}
	return id
}
