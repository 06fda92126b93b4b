package feeders

import (
	"os"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// EnvFeeder folds prefixed environment variables into dot separated keys:
// PREFIX__db__host=x becomes "db.host" = "x". Values that parse as an
// integer, a float or a bool are converted.
type EnvFeeder struct {
	Prefix  string
	Environ func() []string
}

// NewEnvFeeder creates an EnvFeeder reading the process environment.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix, Environ: os.Environ}
}

// Values returns the folded variables.
func (f EnvFeeder) Values() (map[string]any, error) {
	if f.Prefix == "" {
		return nil, ErrEnvEmptyPrefix
	}
	environ := f.Environ
	if environ == nil {
		environ = os.Environ
	}

	marker := f.Prefix + "__"
	values := make(map[string]any)
	for _, kv := range environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(name, marker)
		if !ok || rest == "" {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(rest, "__", "."))
		values[key] = typedValue(value)
	}
	return values, nil
}

var envValueTypes = []reflect.Type{
	reflect.TypeOf(int(0)),
	reflect.TypeOf(float64(0)),
	reflect.TypeOf(false),
}

func typedValue(raw string) any {
	for _, t := range envValueTypes {
		if v, err := cast.FromType(raw, t); err == nil {
			return v
		}
	}
	return raw
}
