package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, validates, and defaults a manifest file.
//
// The extension picks the format, .yaml/.yml or .json. Anything else is
// parsed as YAML first and JSON second, since YAML is a superset.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		return nil, fmt.Errorf("manifest file not found: %s", path)
	case os.IsPermission(err):
		return nil, fmt.Errorf("permission denied reading manifest: %s", path)
	default:
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return LoadFromBytes(data, path)
}

// LoadFromReader is Load for an already-open source. The path only feeds
// format detection and error messages.
func LoadFromReader(r io.Reader, path string) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes parses, validates, and defaults a manifest held in memory.
//
// Validation runs on the raw document, not the decoded struct: the schema
// rejects unknown fields, which struct decoding would silently drop.
func LoadFromBytes(data []byte, path string) (*Manifest, error) {
	if len(data) == 0 {
		return nil, errors.New("manifest file is empty")
	}

	doc, err := asJSON(data, path)
	if err != nil {
		return nil, err
	}

	if err := ValidateRaw(doc); err != nil {
		return nil, err
	}

	// The JSON form carries every field whichever format came in, so the
	// struct always decodes from it.
	var m Manifest
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.ApplyDefaults()

	return &m, nil
}

// asJSON brings the raw document into JSON form for schema validation.
func asJSON(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := checkJSON(data); err != nil {
			return nil, err
		}
		return data, nil

	case ".yaml", ".yml":
		return jsonFromYAML(data)

	default:
		doc, yamlErr := jsonFromYAML(data)
		if yamlErr == nil {
			return doc, nil
		}
		if checkJSON(data) == nil {
			return data, nil
		}
		return nil, fmt.Errorf("parse manifest (tried YAML and JSON): %w", yamlErr)
	}
}

func checkJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid JSON in manifest: %w", err)
	}
	return nil
}

func jsonFromYAML(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML in manifest: %w", err)
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert manifest to JSON: %w", err)
	}
	return doc, nil
}
