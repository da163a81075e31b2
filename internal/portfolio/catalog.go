// Package portfolio holds the static portfolio catalog the assistant speaks
// for, and derives the assistant persona and the profile card from it.
package portfolio

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"folio/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Profile is the identity block of the portfolio.
type Profile struct {
	Name      string   `yaml:"name"`
	ShortName string   `yaml:"short_name"`
	Headline  string   `yaml:"headline"`
	Roles     []string `yaml:"roles"`
	Location  string   `yaml:"location"`
	City      string   `yaml:"city"`
	Tagline   string   `yaml:"tagline"`
	Bio       string   `yaml:"bio"`
	Languages []string `yaml:"languages"`
}

// Contact lists the public contact channels.
type Contact struct {
	Phones []string `yaml:"phones"`
	Email  string   `yaml:"email"`
	Office string   `yaml:"office"`
	MapURL string   `yaml:"map_url"`
}

// Specialty is one headline area of expertise.
type Specialty struct {
	Area   string `yaml:"area"`
	Detail string `yaml:"detail"`
}

// Skill is a named skill with a self-assessed level in percent.
type Skill struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

// SkillGroup groups skills under a category.
type SkillGroup struct {
	Category string  `yaml:"category"`
	Items    []Skill `yaml:"items"`
}

type Service struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
}

type Experience struct {
	Period      string `yaml:"period"`
	Role        string `yaml:"role"`
	Company     string `yaml:"company"`
	Description string `yaml:"description"`
}

type Education struct {
	Title  string `yaml:"title"`
	School string `yaml:"school"`
	Period string `yaml:"period"`
}

// Catalog is the whole portfolio.
type Catalog struct {
	Profile     Profile      `yaml:"profile"`
	Contact     Contact      `yaml:"contact"`
	Specialties []Specialty  `yaml:"specialties"`
	Skills      []SkillGroup `yaml:"skills"`
	Tools       []string     `yaml:"tools"`
	Services    []Service    `yaml:"services"`
	Projects    []Project    `yaml:"projects"`
	Experience  []Experience `yaml:"experience"`
	Education   []Education  `yaml:"education"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("portfolio: embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path. An empty path returns the built-in one.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read portfolio: %w", domain.ErrConfigLoad, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse portfolio: %w", domain.ErrConfigLoad, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	var problems []string
	if strings.TrimSpace(c.Profile.Name) == "" {
		problems = append(problems, "profile.name is required")
	}
	for _, g := range c.Skills {
		for _, s := range g.Items {
			if s.Level < 0 || s.Level > 100 {
				problems = append(problems, fmt.Sprintf("skill %q level %d out of range 0-100", s.Name, s.Level))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: invalid portfolio: %s", domain.ErrConfigLoad, strings.Join(problems, "; "))
	}
	return nil
}

// DisplayName returns the short name, or the full name when none is set.
func (c *Catalog) DisplayName() string {
	if c.Profile.ShortName != "" {
		return c.Profile.ShortName
	}
	return c.Profile.Name
}

// ProjectsIn returns the projects of one category, in catalog order. An
// empty category or "all" returns every project.
func (c *Catalog) ProjectsIn(category string) []Project {
	if category == "" || category == "all" {
		return append([]Project(nil), c.Projects...)
	}
	var out []Project
	for _, p := range c.Projects {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}
