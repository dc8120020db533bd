package config

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v2"
)

var roleKeys = map[string]bool{
	"owner":        true,
	"dispenser":    true,
	"sequencer":    true,
	"feeRecipient": true,
}

// WriteDefaults writes parameters.yaml and roles.yaml holding the defaults
// into dir. Existing files are left alone.
func WriteDefaults(dir string) error {
	parameters := yaml.MapSlice{}
	roles := yaml.MapSlice{}
	for _, key := range sortedKeys(defaults) {
		item := yaml.MapItem{Key: key, Value: defaults[key]}
		if roleKeys[key] {
			roles = append(roles, item)
		} else {
			parameters = append(parameters, item)
		}
	}
	for name, content := range map[string]yaml.MapSlice{"parameters.yaml": parameters, "roles.yaml": roles} {
		if err := writeIfMissing(filepath.Join(dir, name), content); err != nil {
			return err
		}
	}
	return nil
}

// WriteGenesis writes g to path unless the file exists.
func WriteGenesis(path string, g *Genesis) error {
	return writeIfMissing(path, g)
}

func writeIfMissing(path string, v interface{}) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
