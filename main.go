package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"GVChat/data/database"
	"GVChat/global"
	"GVChat/logger"
	"GVChat/middleware/security"
	notiservice "GVChat/module/notification/service"
	userservice "GVChat/module/user/service"
	"GVChat/service/chat"
	"GVChat/service/chat/handlers"
	"GVChat/service/kafka"
	mgoSrv "GVChat/service/mgo"
	"GVChat/service/natsx"
	"GVChat/service/storage"
	"GVChat/service/storage/redis"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const storeConnectWait = 30 * time.Second

func main() {
	cfg, err := global.Load()
	if err != nil {
		logger.Error("config", zap.Error(err))
		os.Exit(2)
	}
	global.ConfigLog(cfg)
	global.ConfigIds(cfg)
	defer logger.Sync()

	bg, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(bg)

	mgr := mgoSrv.NewManager()
	st, err := global.ConfigStore(bg, cfg, mgr, storeConnectWait)
	if err != nil {
		logger.Error("store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
		os.Exit(1)
	}

	mem := chat.NewMemoryCounter()
	var (
		counter chat.ConnCounter        = mem
		conns   userservice.ConnCounter = mem
	)
	rdb, err := global.ConfigRedis(cfg)
	if err != nil {
		logger.Warn("redis unavailable, presence counts stay local", zap.Error(err))
	} else if rdb != nil {
		pc := storage.NewPresenceCounter(rdb, cfg.Chat.PresenceTTL)
		counter, conns = pc, pc
	}

	srv := chat.NewServer(cfg.ChatServerConfig(), chat.Deps{
		Directory: st.Users,
		Messages:  st.Messages,
		Counter:   counter,
	})
	handlers.Register(srv)

	notifications := notiservice.NewNotificationService(st.Notifications, st.Users, srv)

	nc, err := global.ConfigNats(cfg)
	if err != nil {
		logger.Warn("nats unavailable, rooms stay local", zap.Error(err))
	} else if nc != nil {
		relay, err := natsx.NewRoomRelay(nc)
		if err == nil {
			err = relay.Start(srv)
		}
		if err != nil {
			logger.Error("room relay", zap.Error(err))
			os.Exit(1)
		}
		srv.SetRelay(relay)
	}

	kc, err := global.ConfigKafka(cfg)
	switch {
	case err != nil:
		logger.Warn("kafka unavailable, notifications run in process", zap.Error(err))
		srv.SetSink(notifications)
	case kc != nil:
		srv.SetSink(kafka.NewMessageEvents(kc.Producer()))
		router := kafka.NewRouter()
		router.Register(kafka.TopicMessageCreated, kafka.MessageCreatedHandler(notifications.MessageCreated))
		g.Go(func() error { return kafka.Consume(gctx, cfg.Kafka, router) })
	default:
		srv.SetSink(notifications)
	}

	users := userservice.NewUserService(st.Users, global.ConfigJWT(cfg), conns)
	auth := security.DefaultOptions(users.VerifyToken)

	ws := chat.NewWSServer(srv, chat.WSConfig{
		CheckOrigin:  originCheck(cfg.AllowedOrigins),
		Authenticate: func(r *http.Request) (int64, bool) { return security.Authenticate(r, auth) },
	})

	engine := newRouter(routerDeps{
		cfg:           cfg,
		auth:          auth,
		ws:            ws,
		srv:           srv,
		store:         st,
		users:         users,
		notifications: notifications,
		storeHealthy:  storeHealth(cfg, mgr),
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("gateway listening", zap.String("addr", cfg.HTTPAddr), zap.String("node", cfg.NodeID))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var stopping atomic.Bool
	closeAll := func(ctx context.Context) error {
		stopping.Store(true)
		var errList []error
		errList = append(errList, httpSrv.Shutdown(ctx), ws.Shutdown(ctx))
		if nc != nil {
			errList = append(errList, nc.Close())
		}
		if kc != nil {
			errList = append(errList, kc.Close())
		}
		cancel()
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errList = append(errList, err)
		}
		errList = append(errList, closeStore(ctx, st), redis.CloseRedis())
		return errors.Join(errList...)
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"gateway": closeAll,
	})

	select {
	case code := <-wait:
		logger.Info("gateway stopped", zap.Int("code", code))
		logger.Sync()
		os.Exit(code)
	case <-gctx.Done():
		if stopping.Load() {
			code := <-wait
			logger.Info("gateway stopped", zap.Int("code", code))
			logger.Sync()
			os.Exit(code)
		}
		logger.Error("gateway component failed", zap.Error(context.Cause(gctx)))
		ctx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer done()
		if err := closeAll(ctx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
		logger.Sync()
		os.Exit(1)
	}
}

func closeStore(ctx context.Context, st *database.Store) error {
	if st.Close == nil {
		return nil
	}
	return st.Close(ctx)
}

func storeHealth(cfg *global.AppConfig, mgr *mgoSrv.MongoManager) func() bool {
	if cfg.StoreDriver == global.StoreMongo {
		return mgr.Healthy
	}
	return func() bool { return true }
}
