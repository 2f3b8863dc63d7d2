package knx

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfigReader reads the raw configuration file on every call, so the
// result reflects what is on disk and not what was loaded at startup.
type YAMLConfigReader struct {
	path string
}

func NewYAMLConfigReader(path string) *YAMLConfigReader {
	return &YAMLConfigReader{path: path}
}

func (r *YAMLConfigReader) ReadConfig(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", r.path, err)
	}
	return ParseConfigYAML(content)
}

// ParseConfigYAML decodes a configuration document into plain maps and
// slices. Local tags such as !secret or !include are kept as their scalar
// text.
func ParseConfigYAML(content []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if len(doc.Content) == 0 {
		return map[string]any{}, nil
	}
	value, err := nodeValue(doc.Content[0])
	if err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	switch v := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("parse configuration: top level must be a mapping, got %T", value)
	}
}

func nodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			// merge keys
			if key.Tag == "!!merge" {
				merged, err := nodeValue(node.Content[i+1])
				if err != nil {
					return nil, err
				}
				switch mv := merged.(type) {
				case map[string]any:
					mergeMissing(m, mv)
				case []any:
					// earlier mappings in the list take precedence
					for _, item := range mv {
						if mm, ok := item.(map[string]any); ok {
							mergeMissing(m, mm)
						}
					}
				}
				continue
			}
			value, err := nodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[key.Value] = value
		}
		return m, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := nodeValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	case yaml.AliasNode:
		return nodeValue(node.Alias)
	case yaml.ScalarNode:
		if len(node.Tag) > 1 && node.Tag[0] == '!' && node.Tag[1] != '!' {
			return node.Value, nil
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	default:
		return nil, nil
	}
}

func mergeMissing(dst, src map[string]any) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}
