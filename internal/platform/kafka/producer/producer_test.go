package producer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresBrokers(t *testing.T) {
	for _, brokers := range []string{"", "  ", " , "} {
		_, err := New(Config{Brokers: brokers}, nil)
		assert.Error(t, err, "brokers %q", brokers)
	}
}

func TestNew_RejectsUnknownAcks(t *testing.T) {
	cfg := DefaultConfig("127.0.0.1:1")
	cfg.Acks = "most"
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "most")
}

func TestNew_WeakAcks(t *testing.T) {
	for _, acks := range []string{"none", "leader"} {
		cfg := DefaultConfig("127.0.0.1:1")
		cfg.Acks = acks
		p, err := New(cfg, nil)
		require.NoError(t, err, acks)
		require.NoError(t, p.Close())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("localhost:9092")
	assert.Equal(t, "localhost:9092", cfg.Brokers)
	assert.Equal(t, DefaultClientID, cfg.ClientID)
	assert.Equal(t, "all", cfg.Acks)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, 30*time.Second, cfg.DeliveryTimeout)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092 ,, b:9092 "))
	assert.Empty(t, ParseBrokers(" , "))
}

func TestClosedProducerRejectsRecords(t *testing.T) {
	// franz-go connects lazily, so constructing against an unused port is fine.
	p, err := New(DefaultConfig("127.0.0.1:1"), nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err = p.Produce(context.Background(), &Record{Topic: "t", Value: []byte("v")})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Ping(context.Background()), ErrClosed)
	assert.False(t, p.Healthy(context.Background()))
}
