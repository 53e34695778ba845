package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNew(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := Config{URL: "redis://" + mr.Addr() + "/0", ReadTimeout: 1, WriteTimeout: 2, DialTimeout: 3}

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, time.Second, opts.ReadTimeout)
	assert.Equal(t, 2*time.Second, opts.WriteTimeout)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	client, err := cfg.New(context.Background())
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestConfigNewRejectsBadURL(t *testing.T) {
	cfg := Config{URL: "not-a-url"}
	_, err := cfg.New(context.Background())
	assert.Error(t, err)
}
