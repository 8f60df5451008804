package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", Placeholders(1, 3))
	assert.Equal(t, "$4", Placeholders(4, 1))
	assert.Equal(t, "", Placeholders(1, 0))
}

func TestInt64Args(t *testing.T) {
	assert.Equal(t, []any{int64(1), int64(9)}, Int64Args([]int64{1, 9}))
	assert.Empty(t, Int64Args(nil))
}
