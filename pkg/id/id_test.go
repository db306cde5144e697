package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestAtRoundTripsTime(t *testing.T) {
	ts := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	got, err := Time(At(ts))
	require.NoError(t, err)
	assert.True(t, got.Equal(ts))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
