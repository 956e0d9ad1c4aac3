package eval

import (
	"errors"
	"fmt"
	"path/filepath"
)

// TestCase is one scripted tutoring scenario and the behaviour expected from the tutor.
type TestCase struct {
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	Setup            string   `json:"setup"`
	StudentInput     string   `json:"studentInput"`
	ExpectedBehavior string   `json:"expectedBehavior"`
	RedFlags         []string `json:"redFlags"`
}

// Selection narrows the catalog for a run. The zero value selects everything.
// Category and Names compose; Limit is applied last and ignored when <= 0.
type Selection struct {
	Category string
	Names    []string
	Limit    int
}

// Catalog is an ordered, read-only set of test cases.
type Catalog struct {
	version string
	cases   []TestCase
}

// NewCatalog validates cases and wraps them in a catalog.
func NewCatalog(version string, cases []TestCase) (*Catalog, error) {
	seen := make(map[string]struct{}, len(cases))
	for i, tc := range cases {
		if tc.Name == "" {
			return nil, fmt.Errorf("test case %d has no name", i)
		}
		if _, ok := seen[tc.Name]; ok {
			return nil, fmt.Errorf("duplicate test case name %q", tc.Name)
		}
		seen[tc.Name] = struct{}{}
		if tc.ExpectedBehavior == "" {
			return nil, fmt.Errorf("test case %q has no expected behavior", tc.Name)
		}
	}

	return &Catalog{
		version: version,
		cases:   cloneCases(cases),
	}, nil
}

func (c *Catalog) Version() string {
	return c.version
}

func (c *Catalog) Len() int {
	return len(c.cases)
}

// Cases returns a copy of every test case in catalog order.
func (c *Catalog) Cases() []TestCase {
	return cloneCases(c.cases)
}

// Select returns the test cases matching sel in catalog order. A selection that
// matches nothing yields an empty slice.
func (c *Catalog) Select(sel Selection) []TestCase {
	var names map[string]struct{}
	if len(sel.Names) > 0 {
		names = make(map[string]struct{}, len(sel.Names))
		for _, n := range sel.Names {
			names[n] = struct{}{}
		}
	}

	out := make([]TestCase, 0, len(c.cases))
	for _, tc := range c.cases {
		if sel.Category != "" && tc.Category != sel.Category {
			continue
		}
		if names != nil {
			if _, ok := names[tc.Name]; !ok {
				continue
			}
		}
		out = append(out, tc.clone())
	}

	if sel.Limit > 0 && sel.Limit < len(out) {
		out = out[:sel.Limit]
	}

	return out
}

func (tc TestCase) clone() TestCase {
	tc.RedFlags = append([]string(nil), tc.RedFlags...)
	return tc
}

func cloneCases(cases []TestCase) []TestCase {
	out := make([]TestCase, len(cases))
	for i, tc := range cases {
		out[i] = tc.clone()
	}
	return out
}

// LoadCatalog loads a catalog from a JSON file holding an array of test cases.
func LoadCatalog(path string) (*Catalog, error) {
	var cases []TestCase
	if err := readJSONFile(path, &cases); err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, errors.New("catalog file has no test cases")
	}

	return NewCatalog(filepath.Base(path), cases)
}

// SaveCatalog writes test cases to a JSON file.
func SaveCatalog(path string, cases []TestCase) error {
	return writeJSONFile(path, cases)
}
