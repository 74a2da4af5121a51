package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a config file into target, choosing the decoder by extension.
// Anything that is not .json is treated as YAML.
func Load(path string, target interface{}) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(path, target)
	}
	return LoadYAML(path, target)
}

// LoadYAML loads configuration from a YAML file. Keys absent from the file
// keep the values already in target.
func LoadYAML(path string, target interface{}) error {
	// #nosec G304 -- the path comes from the operator's -config flag.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal YAML %s: %w", path, err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file. Keys absent from the file
// keep the values already in target.
func LoadJSON(path string, target interface{}) error {
	// #nosec G304 -- the path comes from the operator's -config flag.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON %s: %w", path, err)
	}
	return nil
}
