package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTicketNumber(t *testing.T) {
	now := time.Date(2024, 7, 9, 23, 0, 0, 0, time.UTC)

	number, err := GenerateTicketNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^WZ-20240709-[0-9A-F]{6}$`), number)

	other, err := GenerateTicketNumber(now)
	require.NoError(t, err)
	assert.NotEqual(t, number, other)
}

func TestNewPaginationParams(t *testing.T) {
	p := NewPaginationParams(3, 10)
	assert.Equal(t, 20, p.Offset)

	p = NewPaginationParams(0, 1000)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset)
}
