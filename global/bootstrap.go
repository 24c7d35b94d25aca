package global

import (
	"context"
	"time"

	"GVChat/data/database"
	"GVChat/data/database/mgo"
	"GVChat/data/database/sqlstore"
	"GVChat/logger"
	"GVChat/service/kafka"
	mgoSrv "GVChat/service/mgo"
	"GVChat/service/natsx"
	"GVChat/service/storage/redis"
	"GVChat/tools/errs"
	"GVChat/tools/ids"
	jwtlib "GVChat/tools/security"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func ConfigLog(cfg *AppConfig) {
	logger.Init(cfg.LogLevel)
}

func ConfigIds(cfg *AppConfig) {
	ids.SetNodeID(cfg.WorkerID)
}

func ConfigJWT(cfg *AppConfig) jwtlib.Options {
	opts := jwtlib.DefaultOptions([]byte(cfg.JWT.Secret))
	if cfg.JWT.TTL > 0 {
		opts.TTL = cfg.JWT.TTL
	}
	if cfg.JWT.Issuer != "" {
		opts.Issuer = cfg.JWT.Issuer
	}
	return opts
}

// ConfigStore opens the configured backend. For Mongo the manager keeps
// connecting in the background until ctx ends; the call waits up to
// connectWait for the first connection.
func ConfigStore(ctx context.Context, cfg *AppConfig, mgr *mgoSrv.MongoManager, connectWait time.Duration) (*database.Store, error) {
	switch cfg.StoreDriver {
	case StoreMongo:
		mcfg := cfg.Mongo
		if err := mcfg.ValidateAndSetDefaults(); err != nil {
			return nil, err
		}
		mgr.StartAsync(ctx, &mcfg)
		wctx, cancel := context.WithTimeout(ctx, connectWait)
		defer cancel()
		db, err := mgr.WaitReady(wctx)
		if err != nil {
			return nil, err
		}
		if err := mgo.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		st := mgo.NewStore(db)
		// the manager disconnects when ctx ends
		st.Close = func(context.Context) error { return nil }
		return st, nil
	default:
		return sqlstore.Open(cfg.SQLitePath, false)
	}
}

// ConfigRedis returns nil when REDIS_ADDR is unset.
func ConfigRedis(cfg *AppConfig) (*goredis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	if err := redis.InitRedis(cfg.Redis); err != nil {
		return nil, err
	}
	logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return redis.GetRedis(), nil
}

// ConfigNats returns nil when NATS_SERVERS is unset.
func ConfigNats(cfg *AppConfig) (*natsx.NatsxClient, error) {
	if len(cfg.Nats.Servers) == 0 {
		return nil, nil
	}
	c, err := natsx.NewNatsxClient(cfg.Nats, natsx.Recover(), natsx.LogErrors(100*time.Millisecond))
	if err != nil {
		return nil, err
	}
	logger.Info("nats connected", zap.Strings("servers", cfg.Nats.Servers))
	return c, nil
}

// ConfigKafka returns nil when KAFKA_BROKERS is unset.
func ConfigKafka(cfg *AppConfig) (*kafka.Client, error) {
	if !cfg.Kafka.Enabled() {
		return nil, nil
	}
	c, err := kafka.NewClient(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if err := c.EnsureTopics(kafka.TopicMessageCreated); err != nil {
		_ = c.Close()
		return nil, errs.WrapMsg(err, "ensure kafka topics")
	}
	logger.Info("kafka connected", zap.Strings("brokers", cfg.Kafka.Brokers))
	return c, nil
}
