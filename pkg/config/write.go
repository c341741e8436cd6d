package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppendRepositories adds paths to the repositories list of the configuration file,
// creating the file if needed. Paths already listed are skipped. The rest of the
// document, comments included, is kept as it is.
func AppendRepositories(configPath string, paths []string) (added []string, err error) {
	var doc yaml.Node

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode}
	}
	if len(doc.Content) == 0 {
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"})
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config file %s is not a mapping", configPath)
	}

	list := mappingValue(root, "repositories")
	if list == nil {
		list = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "repositories"},
			list,
		)
	}
	if list.Kind == yaml.ScalarNode && list.Tag == "!!null" {
		list.Kind, list.Tag, list.Value = yaml.SequenceNode, "!!seq", ""
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("repositories in %s is not a list", configPath)
	}

	baseDir := filepath.Dir(configPath)
	known := make(map[string]bool)
	for _, item := range list.Content {
		var repo Repository
		if err := item.Decode(&repo); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		known[ExpandPath(repo.Path, baseDir)] = true
	}

	for _, path := range paths {
		abs := ExpandPath(path, baseDir)
		if known[abs] {
			continue
		}
		known[abs] = true
		list.Content = append(list.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: abs})
		added = append(added, abs)
	}

	if len(added) == 0 {
		return nil, nil
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config file: %w", err)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0644); err != nil {
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}

	return added, nil
}

// mappingValue returns the value node for key, or nil
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
