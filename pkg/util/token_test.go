package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	first, err := GenerateToken(32)
	require.NoError(t, err)
	assert.Len(t, first, 64, "hex doubles the byte count")

	second, err := GenerateToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
