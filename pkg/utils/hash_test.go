package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalDigestIgnoresKeyOrder(t *testing.T) {
	a, err := CanonicalDigest(map[string]any{"status": "flagged", "page": "1"})
	require.NoError(t, err)

	b, err := CanonicalDigest(map[string]any{"page": "1", "status": "flagged"})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c, err := CanonicalDigest(map[string]any{"page": "2", "status": "flagged"})
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestCanonicalDigestRejectsUnmarshalable(t *testing.T) {
	_, err := CanonicalDigest(map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}

func TestCanonicalDigestSortsStructFields(t *testing.T) {
	type page struct {
		Status string `json:"status"`
		Page   string `json:"page"`
	}

	fromStruct, err := CanonicalDigest(page{Status: "flagged", Page: "1"})
	require.NoError(t, err)

	fromMap, err := CanonicalDigest(map[string]any{"page": "1", "status": "flagged"})
	require.NoError(t, err)

	require.Equal(t, fromMap, fromStruct)
}
