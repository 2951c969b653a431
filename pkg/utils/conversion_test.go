package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	truthy := []interface{}{true, 1, int64(1), float64(1), "true", "YES", " on ", []byte("1")}
	for _, v := range truthy {
		b, err := ParseBool(v)
		require.NoError(t, err, "%v", v)
		assert.True(t, b, "%v", v)
	}

	falsy := []interface{}{false, 0, "false", "off", "no"}
	for _, v := range falsy {
		b, err := ParseBool(v)
		require.NoError(t, err, "%v", v)
		assert.False(t, b, "%v", v)
	}

	for _, v := range []interface{}{nil, 2, 0.5, "maybe", []string{"true"}} {
		_, err := ParseBool(v)
		assert.Error(t, err, "%v", v)
	}
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool("true"))
	assert.False(t, ToBool("garbage"))
	assert.False(t, ToBool(nil))
}
