package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadCode(t *testing.T) {
	assert.Equal(t, "0000", padCode(0))
	assert.Equal(t, "0007", padCode(7))
	assert.Equal(t, "0042", padCode(42))
	assert.Equal(t, "0420", padCode(420))
	assert.Equal(t, "9999", padCode(9999))
}
