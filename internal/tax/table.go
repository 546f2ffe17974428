// Package tax estimates annual property tax by district and municipality.
//
// Estimates come from a single authored rule table. The table ships embedded
// in the binary and can be overridden by a YAML file on disk.
package tax

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed buckets.yaml
var embeddedTable []byte

// SignalField names the school attribute a district's overrides key on.
type SignalField string

const (
	SignalCity SignalField = "city"
	SignalZip  SignalField = "zip"
)

// Table is the authored rule set.
type Table struct {
	ReferenceHomeValue int64           `yaml:"reference_home_value"`
	Districts          []DistrictRules `yaml:"districts"`
}

// DistrictRules holds one default bucket and any municipality overrides.
type DistrictRules struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Signal    SignalField `yaml:"signal"`
	Default   *Bucket     `yaml:"default"`
	Overrides []Override  `yaml:"overrides"`
}

// Bucket is a dollar range with the single figure used for savings math.
type Bucket struct {
	Low            int64  `yaml:"low"`
	High           int64  `yaml:"high"`
	Representative int64  `yaml:"representative"`
	Label          string `yaml:"label"`
}

// Override applies a bucket when the signal equals any Match value.
type Override struct {
	Name   string   `yaml:"name"`
	Match  []string `yaml:"match"`
	Bucket `yaml:",inline"`
}

// EmbeddedTable parses the table compiled into the binary.
func EmbeddedTable() (*Table, error) {
	return ParseTable(embeddedTable)
}

// LoadTableFile reads and validates a table from disk.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tax table %s: %w", path, err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("tax table %s: %w", path, err)
	}
	return t, nil
}

// ParseTable decodes YAML and validates it.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tax table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks every district has exactly one default bucket, sane ranges
// and no ambiguous match values.
func (t *Table) Validate() error {
	var problems []string
	if len(t.Districts) == 0 {
		problems = append(problems, "no districts defined")
	}
	seenDistricts := make(map[string]bool)
	for i, d := range t.Districts {
		where := fmt.Sprintf("district[%d] %q", i, d.ID)
		if strings.TrimSpace(d.ID) == "" {
			problems = append(problems, fmt.Sprintf("district[%d]: id is required", i))
		}
		if seenDistricts[d.ID] {
			problems = append(problems, where+": duplicate district id")
		}
		seenDistricts[d.ID] = true

		if d.Signal != SignalCity && d.Signal != SignalZip {
			problems = append(problems, fmt.Sprintf("%s: signal must be %q or %q", where, SignalCity, SignalZip))
		}
		if d.Default == nil {
			problems = append(problems, where+": default bucket is required")
		} else if msg := d.Default.check(); msg != "" {
			problems = append(problems, where+" default: "+msg)
		}

		seenMatch := make(map[string]string)
		for _, o := range d.Overrides {
			if len(o.Match) == 0 {
				problems = append(problems, fmt.Sprintf("%s override %q: no match values", where, o.Name))
			}
			if msg := o.Bucket.check(); msg != "" {
				problems = append(problems, fmt.Sprintf("%s override %q: %s", where, o.Name, msg))
			}
			for _, m := range o.Match {
				key := normalize(m)
				if key == "" {
					problems = append(problems, fmt.Sprintf("%s override %q: empty match value", where, o.Name))
					continue
				}
				if prev, dup := seenMatch[key]; dup {
					problems = append(problems, fmt.Sprintf("%s: match %q used by both %q and %q", where, m, prev, o.Name))
				}
				seenMatch[key] = o.Name
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid tax table:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func (b Bucket) check() string {
	switch {
	case b.Low < 0:
		return "low must not be negative"
	case b.Low > b.High:
		return fmt.Sprintf("low %d exceeds high %d", b.Low, b.High)
	case b.Representative < b.Low || b.Representative > b.High:
		return fmt.Sprintf("representative %d outside %d-%d", b.Representative, b.Low, b.High)
	case strings.TrimSpace(b.Label) == "":
		return "label is required"
	}
	return ""
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
