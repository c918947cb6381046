package detection

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type labelFile struct {
	Names yaml.Node `yaml:"names"`
}

// LoadLabels reads class names from a dataset YAML file. The names key may be
// a sequence or a mapping of class index to name.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return ParseLabels(data)
}

func ParseLabels(data []byte) ([]string, error) {
	var file labelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}

	switch file.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := file.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("decode label list: %w", err)
		}
		return names, nil
	case yaml.MappingNode:
		var indexed map[int]string
		if err := file.Names.Decode(&indexed); err != nil {
			return nil, fmt.Errorf("decode label map: %w", err)
		}
		keys := make([]int, 0, len(indexed))
		for k := range indexed {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		if len(keys) > 0 && keys[len(keys)-1] != len(keys)-1 {
			return nil, fmt.Errorf("label indices must be contiguous from 0, max index %d for %d labels", keys[len(keys)-1], len(keys))
		}
		names := make([]string, len(keys))
		for _, k := range keys {
			if k < 0 {
				return nil, fmt.Errorf("negative label index %d", k)
			}
			names[k] = indexed[k]
		}
		return names, nil
	default:
		return nil, fmt.Errorf("labels file has no names")
	}
}
