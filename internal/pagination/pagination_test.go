package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		page, limit   int
		expectedPage  int
		expectedLimit int
	}{
		{"explicit", 3, 20, 3, 20},
		{"zero values take defaults", 0, 0, 1, 10},
		{"negative values take defaults", -2, -5, 1, 10},
		{"limit capped", 1, 1000, 1, MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.limit)
			assert.Equal(t, tt.expectedPage, p.Page)
			assert.Equal(t, tt.expectedLimit, p.Limit)
		})
	}
}

func TestParse(t *testing.T) {
	assert.Equal(t, Params{Page: 2, Limit: 5}, Parse("2", "5"))
	assert.Equal(t, Params{Page: 1, Limit: 10}, Parse("", ""))
	assert.Equal(t, Params{Page: 1, Limit: 10}, Parse("abc", "1.5"))
}

func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, New(1, 10).Offset())
	assert.Equal(t, 20, New(3, 10).Offset())
	assert.Equal(t, 15, New(4, 5).Offset())
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		total    int64
		expected Meta
	}{
		{
			name:     "first of three pages",
			params:   New(1, 10),
			total:    25,
			expected: Meta{Total: 25, Page: 1, Limit: 10, TotalPages: 3, HasNext: true, HasPrevious: false},
		},
		{
			name:     "last partial page",
			params:   New(3, 10),
			total:    25,
			expected: Meta{Total: 25, Page: 3, Limit: 10, TotalPages: 3, HasNext: false, HasPrevious: true},
		},
		{
			name:     "exact multiple",
			params:   New(2, 10),
			total:    20,
			expected: Meta{Total: 20, Page: 2, Limit: 10, TotalPages: 2, HasNext: false, HasPrevious: true},
		},
		{
			name:     "empty set",
			params:   New(1, 10),
			total:    0,
			expected: Meta{Total: 0, Page: 1, Limit: 10, TotalPages: 0, HasNext: false, HasPrevious: false},
		},
		{
			name:     "page beyond the end",
			params:   New(5, 10),
			total:    25,
			expected: Meta{Total: 25, Page: 5, Limit: 10, TotalPages: 3, HasNext: false, HasPrevious: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewMeta(tt.params, tt.total))
		})
	}
}
