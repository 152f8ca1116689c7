package util

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQueryParam(t *testing.T) {
	u, err := url.Parse("kafka://localhost:9092/targetchain?partitions=4&retention=1h&flush_bytes=abc")
	require.NoError(t, err)

	assert.Equal(t, 4, GetQueryParamInt(u, "partitions", 1))
	assert.Equal(t, 1024, GetQueryParamInt(u, "flush_bytes", 1024))
	assert.Equal(t, 1, GetQueryParamInt(u, "replication", 1))
	assert.Equal(t, time.Hour, GetQueryParamDuration(u, "retention", time.Minute))
	assert.Equal(t, "x", GetQueryParam(nil, "missing", "x"))
}
