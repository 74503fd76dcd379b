// Package problem reads challenge catalogs.
package problem

import (
	"fmt"
	"os"

	"github.com/criyle/go-runner/pkg/validate"
	"github.com/goccy/go-yaml"
)

// testPassPattern as validation pattern asks for a clean go test pass
const testPassPattern = "PASS"

// Difficulty of a challenge
type Difficulty string

// Difficulties
const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Challenge defines a single coding challenge
type Challenge struct {
	ID                string     `yaml:"id"`
	LessonSlug        string     `yaml:"lessonSlug"`
	Title             string     `yaml:"title"`
	Description       string     `yaml:"description"`
	StarterCode       string     `yaml:"starterCode"`
	ExpectedOutput    string     `yaml:"expectedOutput"`
	ValidationPattern string     `yaml:"validationPattern"`
	TestCode          string     `yaml:"testCode"` // hidden test run with go test alongside the solution
	Hints             []string   `yaml:"hints"`
	Points            int        `yaml:"points"`
	Difficulty        Difficulty `yaml:"difficulty"`
}

// Catalog is the content of a challenge file
type Catalog struct {
	Challenges []Challenge `yaml:"challenges"`
}

// Rule returns the validation rule of the challenge, nil when the
// challenge has nothing to check
func (c *Challenge) Rule() validate.Rule {
	if c.TestCode != "" || c.ValidationPattern == testPassPattern {
		return validate.TestPass{}
	}
	var rules validate.Any
	if c.ExpectedOutput != "" {
		rules = append(rules, validate.Exact{Expected: c.ExpectedOutput})
	}
	if c.ValidationPattern != "" {
		rules = append(rules, validate.Pattern{Expr: c.ValidationPattern})
	}
	switch len(rules) {
	case 0:
		return nil
	case 1:
		return rules[0]
	}
	return rules
}

// Check reports the first malformed field
func (c *Challenge) Check() error {
	if c.ID == "" {
		return fmt.Errorf("challenge %q: empty id", c.Title)
	}
	switch c.Difficulty {
	case "", Easy, Medium, Hard:
	default:
		return fmt.Errorf("challenge %s: unknown difficulty %q", c.ID, c.Difficulty)
	}
	if c.Rule() == nil {
		return fmt.Errorf("challenge %s: no expectedOutput, validationPattern or testCode", c.ID)
	}
	return nil
}

// Parse parses a catalog and checks every challenge
func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Challenges))
	for i := range c.Challenges {
		ch := &c.Challenges[i]
		if err := ch.Check(); err != nil {
			return nil, err
		}
		if seen[ch.ID] {
			return nil, fmt.Errorf("challenge %s: duplicated id", ch.ID)
		}
		seen[ch.ID] = true
	}
	return &c, nil
}

// Load reads the catalog file at path
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Find returns the challenge with id
func (c *Catalog) Find(id string) (*Challenge, bool) {
	for i := range c.Challenges {
		if c.Challenges[i].ID == id {
			return &c.Challenges[i], true
		}
	}
	return nil, false
}
