package feeders

import (
	"encoding/json"
)

// JSONFeeder is a feeder that reads JSON files
type JSONFeeder struct {
	Path string
}

// NewJSONFeeder creates a new JSONFeeder that reads from the specified JSON file
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{Path: filePath}
}

// Values decodes the JSON document.
func (j JSONFeeder) Values() (map[string]any, error) {
	return decodeFile(j.Path, json.Unmarshal)
}
