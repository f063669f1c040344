package config

import (
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// LoadDotEnv populates the process environment from the given .env files
// (".env" when none are given). Missing files are ignored; variables already
// set in the environment win.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.Wrapf(err, "load %s", name)
		}
	}
	return nil
}

// EnvLookup reads keys from the process environment.
func EnvLookup(key string) string {
	return os.Getenv(key)
}

// Chain returns a Lookup that tries each lookup in order and returns the
// first non-empty value.
func Chain(lookups ...Lookup) Lookup {
	return func(key string) string {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if v := strings.TrimSpace(lookup(key)); v != "" {
				return v
			}
		}
		return ""
	}
}

// MapLookup serves keys from a fixed map.
func MapLookup(values map[string]string) Lookup {
	return func(key string) string {
		return values[key]
	}
}
