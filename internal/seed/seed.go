// Package seed provides the initial catalog content used when a tenant's
// durable cache holds nothing yet.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/catalogd/internal/domain"
)

//go:embed seed.yaml
var embedded []byte

// Dataset is the initial content of every collection.
type Dataset struct {
	Courses []domain.Course         `yaml:"courses"`
	Jobs    []domain.JobPosting     `yaml:"jobs"`
	Tests   []domain.AssessmentTest `yaml:"tests"`
}

// Clone returns a deep copy so tenants never share slices.
func (d Dataset) Clone() Dataset {
	return Dataset{
		Courses: cloneAll(d.Courses),
		Jobs:    cloneAll(d.Jobs),
		Tests:   cloneAll(d.Tests),
	}
}

func cloneAll[T interface{ Clone() T }](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, e := range items {
		out[i] = e.Clone()
	}
	return out
}

// Loader reads the seed dataset from a file, or from the embedded default
// when no path is configured.
type Loader struct {
	filePath string
}

// NewLoader creates a loader. An empty path selects the embedded dataset.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Source describes where the dataset comes from, for logs.
func (l *Loader) Source() string {
	if l.filePath == "" {
		return "embedded"
	}
	return l.filePath
}

// Load reads, parses and checks the dataset.
func (l *Loader) Load() (Dataset, error) {
	data := embedded
	if l.filePath != "" {
		var err error
		data, err = os.ReadFile(l.filePath)
		if err != nil {
			return Dataset{}, fmt.Errorf("failed to read seed file: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes a YAML dataset and rejects invalid or duplicate entries.
func Parse(data []byte) (Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Dataset{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}

	if err := check("courses", d.Courses); err != nil {
		return Dataset{}, err
	}
	if err := check("jobs", d.Jobs); err != nil {
		return Dataset{}, err
	}
	if err := check("tests", d.Tests); err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// Default returns the embedded dataset. It panics if the embedded file is
// broken, which the package tests guard against.
func Default() Dataset {
	d, err := Parse(embedded)
	if err != nil {
		panic(err)
	}
	return d
}

func check[T interface{ Key() string }](kind string, items []T) error {
	seen := make(map[string]bool, len(items))
	for i, e := range items {
		if e.Key() == "" {
			return fmt.Errorf("seed %s[%d]: missing id", kind, i)
		}
		if seen[e.Key()] {
			return fmt.Errorf("seed %s[%d]: duplicate id %q", kind, i, e.Key())
		}
		seen[e.Key()] = true
		if err := domain.Validate(e); err != nil {
			return fmt.Errorf("seed %s[%d]: %w", kind, i, err)
		}
	}
	return nil
}
