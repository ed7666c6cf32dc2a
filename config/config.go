package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// New snapshots the process environment into a key/value map.
func New() map[string]string {
	environ := os.Environ()
	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, _ := strings.Cut(entry, "=")
		if key != "" {
			env[key] = value
		}
	}
	return env
}

// lookup returns the trimmed value for key, reporting false when it is unset
// or blank.
func lookup(config map[string]string, key string) (string, bool) {
	val := strings.TrimSpace(config[key])
	return val, val != ""
}

func GetString(config map[string]string, key string, defaultValue string) string {
	if val, ok := lookup(config, key); ok {
		return val
	}
	return defaultValue
}

// GetInt falls back to defaultValue when the value does not parse.
func GetInt(config map[string]string, key string, defaultValue int) int {
	val, ok := lookup(config, key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetBool accepts the spellings understood by strconv.ParseBool.
func GetBool(config map[string]string, key string, defaultValue bool) bool {
	val, ok := lookup(config, key)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return b
}

// GetDuration reads an integer count of unit, e.g. READ_TIMEOUT_SECONDS.
func GetDuration(config map[string]string, key string, unit time.Duration, defaultValue int) time.Duration {
	return time.Duration(GetInt(config, key, defaultValue)) * unit
}

// GetList splits a comma separated value, dropping blank entries.
func GetList(config map[string]string, key string) []string {
	val, ok := lookup(config, key)
	if !ok {
		return nil
	}

	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
