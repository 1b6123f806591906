package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// decoders maps config file extensions to their unmarshal functions.
// Both formats decode into the flat key map Config wraps; the service
// reads listen, jobs_dir, store_path, vision_provider, and gemini_model
// from it.
var decoders = map[string]func([]byte, any) error{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".json": json.Unmarshal,
}

// FromFile loads service configuration, picking the decoder from the
// file extension.
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parse(data, decode, ext)
}

// FromYAML parses YAML configuration data.
func FromYAML(data []byte) (Config, error) {
	return parse(data, yaml.Unmarshal, ".yaml")
}

// FromJSON parses JSON configuration data.
func FromJSON(data []byte) (Config, error) {
	return parse(data, json.Unmarshal, ".json")
}

func parse(data []byte, decode func([]byte, any) error, ext string) (Config, error) {
	var m map[string]any
	if err := decode(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse %s config: %w", strings.TrimPrefix(ext, "."), err)
	}
	return New(m), nil
}
