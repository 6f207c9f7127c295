package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "13800138000", Normalize("8613800138000"))
	assert.Equal(t, "13800138000", Normalize("+86 138-0013-8000"))
	assert.Equal(t, "13800138000", Normalize("13800138000"))
	assert.Equal(t, "12345", Normalize("12345"))
	// A bare number starting with 86 must not lose its prefix.
	assert.Equal(t, "86138001", Normalize("86138001"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("13800138000"))
	assert.True(t, IsValid("19912345678"))
	assert.False(t, IsValid("12345"))
	assert.False(t, IsValid("12800138000")) // second digit must be 3-9
	assert.False(t, IsValid("138001380001"))
	assert.False(t, IsValid("8613800138000"))
	assert.False(t, IsValid(""))
}
