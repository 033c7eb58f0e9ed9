package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabledValues(t *testing.T) {
	values := map[string]string{"FLAG_RESTRICT_REGISTRATION": " Yes "}
	f := New(func(key string) string { return values[key] })

	assert.True(t, f.Enabled(RestrictRegistration))
	assert.False(t, f.Enabled("other"))

	values["FLAG_RESTRICT_REGISTRATION"] = "0"
	assert.False(t, f.Enabled(RestrictRegistration))
}

func TestEnabledFromEnvironment(t *testing.T) {
	t.Setenv("FLAG_RESTRICT_REGISTRATION", "on")
	assert.True(t, Enabled(RestrictRegistration))
}
