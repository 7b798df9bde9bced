package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDescription reads a declarative description file into the generic
// tree the Model consumes. The document reader itself is an external
// collaborator per §1; this is the default implementation used end to end
// by the CLI entry points.
func LoadDescription(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading description %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing description %s: %w", path, err)
	}
	return raw, nil
}

// section returns the named top-level section as a list of generic maps,
// tolerating an absent section (empty list, no error).
func section(tree map[string]interface{}, name string) ([]map[string]interface{}, error) {
	raw, ok := tree[name]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected a list", name)
	}
	out := make([]map[string]interface{}, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s[%d]: expected a mapping", name, i)
		}
		out = append(out, m)
	}
	return out, nil
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return fmt.Sprintf("%d", t), true
	case float64:
		return fmt.Sprintf("%g", t), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}

func stringListField(m map[string]interface{}, key string) ([]string, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out, true
	case string:
		return []string{t}, true
	default:
		return nil, false
	}
}

func stringMapField(m map[string]interface{}, key string) map[string]string {
	out := map[string]string{}
	v, ok := m[key]
	if !ok {
		return out
	}
	asMap, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	for k, val := range asMap {
		out[k] = fmt.Sprintf("%v", val)
	}
	return out
}
