package config

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix       = "CORE_ENGINE_"
	NestedSeparator = "__"
)

// CoerceValue converts an environment string into the most specific type it
// looks like. The order is part of the contract: bool-like words first, then
// integers, then floats, otherwise the string itself. "1" and "0" are
// therefore booleans.
func CoerceValue(value string) any {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

// SchemaKeys returns the dotted viper keys of every leaf field in Config.
func SchemaKeys() map[string]struct{} {
	keys := make(map[string]struct{})
	collectKeys(reflect.TypeOf(Config{}), "", keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys map[string]struct{}) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			collectKeys(field.Type, key, keys)
			continue
		}
		keys[key] = struct{}{}
	}
}

// EnvOverrides maps environ entries to schema keys and coerced values.
// CORE_ENGINE_SOURCE_CHAIN__RPC_URL targets source_chain.rpc_url. Entries
// that do not name a leaf of the schema are ignored.
func EnvOverrides(environ []string) map[string]any {
	schema := SchemaKeys()
	overrides := make(map[string]any)

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}

		path := strings.Split(strings.ToLower(name[len(EnvPrefix):]), NestedSeparator)
		key := strings.Join(path, ".")
		if _, known := schema[key]; !known {
			continue
		}
		overrides[key] = CoerceValue(value)
	}

	return overrides
}

// ApplyEnvOverrides sets every legal override from environ on v.
func ApplyEnvOverrides(v *viper.Viper, environ []string) {
	for key, value := range EnvOverrides(environ) {
		v.Set(key, value)
	}
}
