package liveness

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultClasses = map[string]string{
	"freshapples":    "Fresh",
	"freshbanana":    "Fresh",
	"freshoranges":   "Fresh",
	"freshtomato":    "Fresh",
	"freshpotato":    "Fresh",
	"freshcucumber":  "Fresh",
	"rottenapples":   "Rotten",
	"rottenbanana":   "Rotten",
	"rottenoranges":  "Rotten",
	"rottentomato":   "Rotten",
	"rottenpotato":   "Rotten",
	"rottencucumber": "Rotten",
}

type mappingFile struct {
	Classes map[string]string `yaml:"classes"`
}

// Mapping is the static class to liveness table. It is read-only after
// construction.
type Mapping struct {
	classes map[string]string
}

func Default() *Mapping {
	return &Mapping{classes: maps.Clone(defaultClasses)}
}

// Load reads a YAML file with a top-level "classes" map. An empty path yields
// the built-in table.
func Load(path string) (*Mapping, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read liveness mapping: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Mapping, error) {
	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse liveness mapping: %w", err)
	}
	if len(file.Classes) == 0 {
		return nil, fmt.Errorf("liveness mapping has no classes")
	}
	for class, liveness := range file.Classes {
		if strings.TrimSpace(class) == "" || strings.TrimSpace(liveness) == "" {
			return nil, fmt.Errorf("liveness mapping has a blank entry for %q", class)
		}
	}
	return &Mapping{classes: file.Classes}, nil
}

func (m *Mapping) Lookup(class string) (string, bool) {
	v, ok := m.classes[class]
	return v, ok
}

// All returns a copy of the table.
func (m *Mapping) All() map[string]string {
	return maps.Clone(m.classes)
}

func (m *Mapping) Len() int {
	return len(m.classes)
}
