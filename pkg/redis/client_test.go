package redis

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "cache:6380", Config{Host: "cache", Port: 6380}.Addr())
}

func TestNewClient_Unreachable(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	_, err := NewClient(context.Background(), Config{Host: "127.0.0.1", Port: 1}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
