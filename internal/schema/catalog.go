// Package schema loads the declarative dataset schema that drives validation
// and feature scaling. The catalog is resolved and checked once per run;
// inconsistencies surface at load time, not deep inside a transformation.
package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTargetColumn is the label column used when the schema file does not
// name one explicitly.
const DefaultTargetColumn = "Response"

// StringList accepts either a single scalar or a sequence in YAML.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = StringList(items)
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence, got yaml kind %d", value.Kind)
	}
}

// Catalog describes column roles for one dataset.
type Catalog struct {
	Columns       []string   `yaml:"columns"`
	Numerical     []string   `yaml:"numerical_column"`
	Categorical   []string   `yaml:"categorical_column"`
	NumFeatures   []string   `yaml:"num_features"`
	MinMaxColumns []string   `yaml:"mm_columns"`
	DropColumns   StringList `yaml:"drop_columns"`
	TargetColumn  string     `yaml:"target_column"`
}

// Load reads and validates a schema catalog from a YAML file.
func Load(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a schema catalog.
func Parse(input []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(input, &cat); err != nil {
		return Catalog{}, fmt.Errorf("decode schema: %w", err)
	}
	if strings.TrimSpace(cat.TargetColumn) == "" {
		cat.TargetColumn = DefaultTargetColumn
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// ExpectedColumnCount is the total column count a conforming dataset carries.
func (c Catalog) ExpectedColumnCount() int { return len(c.Columns) }

// RequiredColumns is the union of numerical and categorical columns whose
// presence the validation stage checks.
func (c Catalog) RequiredColumns() []string {
	out := make([]string, 0, len(c.Numerical)+len(c.Categorical))
	out = append(out, c.Numerical...)
	out = append(out, c.Categorical...)
	return out
}

// Validate checks internal consistency, collecting every violation.
func (c Catalog) Validate() error {
	var problems []string

	if len(c.Columns) == 0 {
		problems = append(problems, "columns must be non-empty")
	}
	if strings.TrimSpace(c.TargetColumn) == "" {
		problems = append(problems, "target column is required")
	}

	problems = append(problems, duplicateProblems("columns", c.Columns)...)

	// Every role set must name declared columns; a typo here would otherwise
	// surface as a missing-column failure deep inside a transformation.
	if len(c.Columns) > 0 {
		known := make(map[string]struct{}, len(c.Columns))
		for _, col := range c.Columns {
			known[col] = struct{}{}
		}
		roles := []struct {
			name string
			cols []string
		}{
			{"numerical_column", c.Numerical},
			{"categorical_column", c.Categorical},
			{"num_features", c.NumFeatures},
			{"mm_columns", c.MinMaxColumns},
		}
		for _, role := range roles {
			for _, col := range role.cols {
				if _, ok := known[col]; !ok {
					problems = append(problems, fmt.Sprintf("column %q in %s is not declared in columns", col, role.name))
				}
			}
		}
		if c.TargetColumn != "" {
			if _, ok := known[c.TargetColumn]; !ok {
				problems = append(problems, fmt.Sprintf("target column %q is not declared in columns", c.TargetColumn))
			}
		}
	}

	sets := []struct {
		name string
		cols []string
	}{
		{"num_features", c.NumFeatures},
		{"mm_columns", c.MinMaxColumns},
		{"categorical_column", c.Categorical},
	}
	for i := range sets {
		for j := i + 1; j < len(sets); j++ {
			for _, col := range overlap(sets[i].cols, sets[j].cols) {
				problems = append(problems, fmt.Sprintf("column %q appears in both %s and %s", col, sets[i].name, sets[j].name))
			}
		}
		for _, col := range sets[i].cols {
			if col == c.TargetColumn {
				problems = append(problems, fmt.Sprintf("target column %q must not appear in %s", col, sets[i].name))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid schema: %s", strings.Join(problems, "; "))
	}
	return nil
}

func duplicateProblems(name string, cols []string) []string {
	seen := make(map[string]struct{}, len(cols))
	var problems []string
	for _, col := range cols {
		if _, ok := seen[col]; ok {
			problems = append(problems, fmt.Sprintf("duplicate column %q in %s", col, name))
			continue
		}
		seen[col] = struct{}{}
	}
	return problems
}

func overlap(a, b []string) []string {
	inA := make(map[string]struct{}, len(a))
	for _, col := range a {
		inA[col] = struct{}{}
	}
	var out []string
	for _, col := range b {
		if _, ok := inA[col]; ok {
			out = append(out, col)
		}
	}
	return out
}
