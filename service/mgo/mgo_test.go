package mgo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"GVChat/data/database/mgo/mongoutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffIsCapped(t *testing.T) {
	for i := 0; i < 10; i++ {
		d := backoff(i)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, maxBackoff)
	}
	assert.LessOrEqual(t, backoff(0), baseBackoff)
}

func TestWaitReadyReportsLastError(t *testing.T) {
	var calls atomic.Int32
	m := NewManager()
	m.connect = func(ctx context.Context, cfg *mongoutil.Config) (*mongoutil.Client, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	m.StartAsync(ctx, &mongoutil.Config{Database: "t"})

	_, err := m.WaitReady(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	assert.False(t, m.Healthy())
}
