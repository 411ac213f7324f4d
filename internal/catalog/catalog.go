// Package catalog maps detector labels to material categories and categories
// to CO2 savings factors.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a recyclable material class.
type Category string

const (
	Aluminum Category = "aluminum"
	Plastic  Category = "plastic"
	Paper    Category = "paper"
	Glass    Category = "glass"
	Metal    Category = "metal"
	Other    Category = "other"
)

// Categories lists the closed set of categories.
var Categories = []Category{Aluminum, Plastic, Paper, Glass, Metal, Other}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultFactor applies to Other and to any category without an explicit factor.
const DefaultFactor = 0.1

var builtinLabels = map[string]Category{
	"Aluminium foil":        Aluminum,
	"Bottle":                Plastic,
	"Bottle cap":            Plastic,
	"Can":                   Metal,
	"Drink can":             Metal,
	"Carton":                Paper,
	"Cup":                   Paper,
	"Glass bottle":          Glass,
	"Plastic bag - wrapper": Plastic,
	"Plastic container":     Plastic,
	"Straw":                 Plastic,
	"Lid":                   Plastic,
	"Stylofoam piece":       Plastic,
	"Pop tab":               Metal,
	"Jug":                   Plastic,
	"Water bottle":          Plastic,
}

var builtinFactors = map[Category]float64{
	Aluminum: 9.1,
	Plastic:  1.5,
	Paper:    0.9,
	Glass:    0.5,
	Metal:    6.5,
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	labels        map[string]Category
	factors       map[Category]float64
	defaultFactor float64
}

// File is the YAML layout accepted by Load.
type File struct {
	DefaultFactor float64              `yaml:"default_factor"`
	Factors       map[Category]float64 `yaml:"factors"`
	Labels        map[string]Category  `yaml:"labels"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, _ := New(builtinLabels, builtinFactors, DefaultFactor)
	return c
}

// New validates and copies the given tables.
func New(labels map[string]Category, factors map[Category]float64, defaultFactor float64) (*Catalog, error) {
	if defaultFactor <= 0 {
		return nil, fmt.Errorf("default factor must be positive, got %v", defaultFactor)
	}

	c := &Catalog{
		labels:        make(map[string]Category, len(labels)),
		factors:       make(map[Category]float64, len(factors)),
		defaultFactor: defaultFactor,
	}
	for label, category := range labels {
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("empty label in catalog")
		}
		if !category.Valid() {
			return nil, fmt.Errorf("label %q maps to unknown category %q", label, category)
		}
		c.labels[label] = category
	}
	for category, factor := range factors {
		if !category.Valid() {
			return nil, fmt.Errorf("factor given for unknown category %q", category)
		}
		if factor < 0 {
			return nil, fmt.Errorf("factor for %s must not be negative, got %v", category, factor)
		}
		c.factors[category] = factor
	}
	return c, nil
}

// Load reads a YAML catalog. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if f.DefaultFactor == 0 {
		f.DefaultFactor = DefaultFactor
	}
	if len(f.Labels) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no labels", path)
	}

	c, err := New(f.Labels, f.Factors, f.DefaultFactor)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
	}
	return c, nil
}

// CategoryOf maps a label by exact match. Unknown labels map to Other.
func (c *Catalog) CategoryOf(label string) Category {
	if category, ok := c.labels[label]; ok {
		return category
	}
	return Other
}

// FactorOf returns kg CO2 saved per kg of material.
func (c *Catalog) FactorOf(category Category) float64 {
	if factor, ok := c.factors[category]; ok && category != Other {
		return factor
	}
	return c.defaultFactor
}

// Labels returns the supported labels in sorted order.
func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.labels))
	for label := range c.labels {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Factors returns a copy of the factor table including the default under Other.
func (c *Catalog) Factors() map[Category]float64 {
	out := make(map[Category]float64, len(Categories))
	for _, category := range Categories {
		out[category] = c.FactorOf(category)
	}
	return out
}
