package feeders

import (
	"gopkg.in/yaml.v3"
)

// YamlFeeder is a feeder that reads YAML files
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{Path: filePath}
}

// Values decodes the YAML document.
func (y YamlFeeder) Values() (map[string]any, error) {
	return decodeFile(y.Path, yaml.Unmarshal)
}
