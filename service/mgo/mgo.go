package mgo

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"GVChat/data/database/mgo/mongoutil"
	"GVChat/logger"
	"GVChat/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second
)

// MongoManager connects in the background with exponential backoff and then
// pings on a ticker. The driver reconnects on its own; the manager only
// tracks health.
type MongoManager struct {
	mu        sync.RWMutex
	client    *mongoutil.Client
	readyCh   chan struct{}
	readyOnce sync.Once
	healthy   atomic.Bool
	lastErr   atomic.Value // error

	connect func(ctx context.Context, cfg *mongoutil.Config) (*mongoutil.Client, error)
}

func NewManager() *MongoManager {
	return &MongoManager{readyCh: make(chan struct{}), connect: mongoutil.NewMongoDB}
}

// StartAsync runs until ctx is done and disconnects on the way out.
func (m *MongoManager) StartAsync(ctx context.Context, cfg *mongoutil.Config) {
	go func() {
		attempt := 0
		for {
			cli, err := m.connect(ctx, cfg)
			if err == nil {
				m.mu.Lock()
				m.client = cli
				m.mu.Unlock()
				m.healthy.Store(true)
				m.readyOnce.Do(func() { close(m.readyCh) })
				logger.Info("mongo connected", zap.String("db", cfg.Database))
				break
			}
			m.lastErr.Store(err)
			logger.Warn("mongo connect failed", zap.Int("attempt", attempt), zap.Error(err))

			if !sleepCtx(ctx, backoff(attempt)) {
				return
			}
			if attempt < 6 {
				attempt++
			}
		}

		t := time.NewTicker(healthEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				m.mu.Lock()
				if m.client != nil {
					_ = m.client.Disconnect(context.Background())
				}
				m.mu.Unlock()
				m.healthy.Store(false)
				return
			case <-t.C:
				m.ping(ctx)
			}
		}
	}()
}

func (m *MongoManager) ping(ctx context.Context) {
	db, ok := m.TryGetDB()
	if !ok {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.Client().Ping(pctx, nil); err != nil {
		if m.healthy.Swap(false) {
			logger.Warn("mongo ping failed", zap.Error(err))
		}
		m.lastErr.Store(err)
		return
	}
	if !m.healthy.Swap(true) {
		logger.Info("mongo healthy again")
	}
}

// backoff doubles from baseBackoff up to maxBackoff, minus up to 10% jitter.
func backoff(attempt int) time.Duration {
	d := baseBackoff << attempt
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d / 5)))
	return d - jitter/2
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Ready is closed on the first successful connect.
func (m *MongoManager) Ready() <-chan struct{} {
	return m.readyCh
}

func (m *MongoManager) Healthy() bool {
	return m.healthy.Load()
}

// Err is the most recent connect or ping error.
func (m *MongoManager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (m *MongoManager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

// WaitReady blocks until the first connect or ctx expiry, returning the
// database on success.
func (m *MongoManager) WaitReady(ctx context.Context) (*mongo.Database, error) {
	select {
	case <-m.readyCh:
		db, _ := m.TryGetDB()
		return db, nil
	case <-ctx.Done():
		if err := m.Err(); err != nil {
			return nil, errs.WrapMsg(err, "mongo not ready")
		}
		return nil, errs.WrapMsg(ctx.Err(), "mongo not ready")
	}
}
