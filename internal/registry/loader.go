package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"launcherd/pkg/types"
)

// toolFile is the on-disk shape of a tool catalog file.
type toolFile struct {
	Tools []types.Tool `json:"tools" yaml:"tools"`
}

// Load reads the tool catalog from path: a single YAML/JSON file, or a
// directory whose *.yaml/*.yml/*.json files are merged in name order.
// Duplicate tool names keep the last definition.
func Load(path string) ([]types.Tool, error) {
	base, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat tools path: %w", err)
	}
	if !fi.IsDir() {
		return loadFile(abs)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	byName := make(map[string]types.Tool)
	var order []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		tools, err := loadFile(filepath.Join(abs, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for _, t := range tools {
			if _, seen := byName[t.Name]; !seen {
				order = append(order, t.Name)
			}
			byName[t.Name] = t
		}
	}
	out := make([]types.Tool, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

func loadFile(path string) ([]types.Tool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf toolFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(b, &tf); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(b, &tf); err != nil {
			return nil, err
		}
	}
	var tools []types.Tool
	for _, t := range tf.Tools {
		if err := validate(t); err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

func validate(t types.Tool) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tool with empty name")
	}
	if len(t.Command) == 0 {
		return fmt.Errorf("tool %s: empty command", t.Name)
	}
	return nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/launcherd/tools
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
