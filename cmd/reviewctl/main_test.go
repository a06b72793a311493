package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&apierror.UnreachableError{Endpoint: "/health", Cause: errors.New("refused")}))
	assert.True(t, retryable(&apierror.RequestFailedError{StatusCode: 503}))
	assert.False(t, retryable(&apierror.RequestFailedError{StatusCode: 404}))
	assert.False(t, retryable(apierror.Validation("page", "must be positive")))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("from", "")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDate("from", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), *d)

	_, err = parseDate("to", "yesterday")
	require.ErrorIs(t, err, apierror.ErrValidation)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
