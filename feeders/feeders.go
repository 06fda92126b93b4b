// Package feeders provides configuration feeders for reading data from
// various sources including environment variables, JSON, YAML and TOML files.
//
// Every feeder returns a plain map. Nested maps are left nested; flattening
// into dot separated keys is done by the consumer.
package feeders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Feeder produces configuration values.
type Feeder interface {
	Values() (map[string]any, error)
}

// ForFile returns the file feeder matching the file extension.
func ForFile(path string) (Feeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	case ".json":
		return NewJSONFeeder(path), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, path)
}

// SupportedExtensions lists the extensions ForFile understands, in lookup
// order.
func SupportedExtensions() []string {
	return []string{".yaml", ".yml", ".toml", ".json"}
}

// decodeFile reads path and decodes it into a map with decode.
func decodeFile(path string, decode func([]byte, any) error) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileRead, path, err)
	}

	values := make(map[string]any)
	if err := decode(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileDecode, path, err)
	}
	return values, nil
}
