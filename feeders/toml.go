package feeders

import (
	"github.com/BurntSushi/toml"
)

// TomlFeeder is a feeder that reads TOML files
type TomlFeeder struct {
	Path string
}

func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

// Values decodes the TOML document.
func (t TomlFeeder) Values() (map[string]any, error) {
	return decodeFile(t.Path, toml.Unmarshal)
}
