package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeySetsAreDisjoint(t *testing.T) {
	owner := map[string]string{}
	sets := map[string][]string{
		"user":        UserSessionKeys(),
		"admin":       AdminSessionKeys(),
		"preferences": PreferenceKeys(),
	}

	for name, keys := range sets {
		for _, k := range keys {
			prev, taken := owner[k]
			assert.False(t, taken, "key %q owned by both %s and %s", k, prev, name)
			owner[k] = name
		}
	}
	assert.Len(t, owner, 10)
}
