package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Load reads a profile from a JSON or YAML file, chosen by extension, fills defaults
// and validates it.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	p, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	return p, nil
}

// Parse decodes profile data. ext selects the format (".yaml"/".yml", anything else is JSON).
func Parse(data []byte, ext string) (*Profile, error) {
	var p Profile

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		// YAML goes through a generic document into the JSON decoder so both formats
		// share field names and enum parsing. Dates must be RFC 3339.
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
		data = converted
	}

	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Save writes the profile as indented JSON, or YAML for .yaml/.yml paths.
func Save(p *Profile, path string) error {
	data, err := Marshal(p, filepath.Ext(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile %s: %w", path, err)
	}
	return nil
}

// Marshal encodes the profile in the format selected by ext.
func Marshal(p *Profile, ext string) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("convert profile: %w", err)
		}
		out, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return out, nil
	}

	return append(data, '\n'), nil
}
