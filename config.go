package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/GoCodeAlone/kernel/feeders"
	"github.com/golobby/cast"
)

// Config is an ordered mapping of dot separated keys to values. Nested maps
// merged into it are flattened: {"db": {"host": "x"}} becomes "db.host".
type Config struct {
	keys   []string
	values map[string]any
}

// NewConfig creates an empty Config.
func NewConfig() *Config {
	return &Config{values: make(map[string]any)}
}

// Set stores value under key, keeping the key's original position if it
// already exists.
func (c *Config) Set(key string, value any) {
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Get returns the value stored under key.
func (c *Config) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the value under key as a string, or def when missing.
func (c *Config) GetString(key, def string) string {
	v, ok := c.values[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetBool returns the value under key as a bool, or def when missing or not
// convertible. Strings and numbers go through strconv.ParseBool rules, so
// "false", "0" and 0 are all false.
func (c *Config) GetBool(key string, def bool) bool {
	switch v := c.values[key].(type) {
	case nil:
		return def
	case bool:
		return v
	case string:
		return castBool(v, def)
	default:
		return castBool(fmt.Sprint(v), def)
	}
}

func castBool(s string, def bool) bool {
	b, err := cast.FromType(s, reflect.TypeOf(false))
	if err != nil {
		return def
	}
	return b.(bool)
}

// Keys returns the keys in insertion order.
func (c *Config) Keys() []string {
	return slices.Clone(c.keys)
}

// Len returns the number of keys.
func (c *Config) Len() int {
	return len(c.keys)
}

// Section returns every value below prefix, keyed relative to it.
func (c *Config) Section(prefix string) map[string]any {
	prefix = strings.TrimSuffix(prefix, ".") + "."
	section := make(map[string]any)
	for _, k := range c.keys {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			section[rest] = c.values[k]
		}
	}
	return section
}

// Merge flattens values into the config. Map keys are visited in sorted
// order so that insertion order is deterministic.
func (c *Config) Merge(values map[string]any) {
	c.merge("", values)
}

func (c *Config) merge(prefix string, values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := values[k].(map[string]any); ok {
			c.merge(key, nested)
			continue
		}
		c.Set(key, values[k])
	}
}

// Feed merges everything the feeders produce, in order.
func (c *Config) Feed(sources ...feeders.Feeder) error {
	for _, src := range sources {
		values, err := src.Values()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfigFileUnreadable, err)
		}
		c.Merge(values)
	}
	return nil
}

// discoverConfigFiles returns the config files present in dir: the base
// "config.<ext>" followed by the environment overlay "config_<env>.<ext>".
func discoverConfigFiles(dir string, env Environment) []string {
	var found []string
	for _, base := range []string{"config", "config_" + string(env)} {
		for _, ext := range feeders.SupportedExtensions() {
			path := filepath.Join(dir, base+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				found = append(found, path)
				break
			}
		}
	}
	return found
}
