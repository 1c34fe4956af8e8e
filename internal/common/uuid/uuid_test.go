package uuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultUUID(t *testing.T) {
	g := New()

	a, b := g.NewUUID(), g.NewUUID()
	assert.NotEqual(t, a, b)
	assert.True(t, Valid(a))
	assert.True(t, Valid(b))
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("brave-otter"))
	assert.False(t, Valid("6ba7b810-9dad-11d1-80b4"))
	assert.True(t, Valid("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
}
