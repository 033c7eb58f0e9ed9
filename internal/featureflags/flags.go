package featureflags

import (
	"os"
	"strings"
)

const (
	// RestrictRegistration makes POST /users require a privileged access token
	RestrictRegistration = "restrict_registration"
)

// Source reads a flag's raw value; os.Getenv by default
type Source func(key string) string

// Flags evaluates FLAG_<NAME> values from a Source
type Flags struct {
	source Source
}

// New returns flags backed by source, or the environment when nil
func New(source Source) *Flags {
	if source == nil {
		source = os.Getenv
	}
	return &Flags{source: source}
}

// Enabled returns true if FLAG_<NAME> is true/1/yes/on (case-insensitive)
func (f *Flags) Enabled(name string) bool {
	switch strings.ToLower(strings.TrimSpace(f.source("FLAG_" + strings.ToUpper(name)))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Enabled reads a flag from the process environment
func Enabled(name string) bool {
	return New(nil).Enabled(name)
}
