package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/y4my4my4m/nexus-server-sub000/global"
	"github.com/y4my4my4m/nexus-server-sub000/logger"
	"github.com/y4my4my4m/nexus-server-sub000/service/chat"
	"github.com/y4my4my4m/nexus-server-sub000/service/moderation"
	"github.com/y4my4my4m/nexus-server-sub000/service/relay"
	"github.com/y4my4my4m/nexus-server-sub000/service/storage"
	"github.com/y4my4my4m/nexus-server-sub000/service/storage/memory"
	mongostore "github.com/y4my4my4m/nexus-server-sub000/service/storage/mongo"
	"github.com/y4my4my4m/nexus-server-sub000/tools/ids"
)

func main() {
	cfg := global.Load(os.Args[1:])
	ids.SetNodeID(cfg.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var gw storage.PersistenceGateway
	if cfg.MongoURI != "" {
		store, err := mongostore.NewStore(ctx, mongostore.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
		if err != nil {
			logger.Error("mongo unavailable", zap.Error(err))
			os.Exit(1)
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			logger.Error("mongo indexes", zap.Error(err))
			os.Exit(1)
		}
		defer func() { _ = store.Close(context.Background()) }()
		gw = store
	} else {
		logger.Warn("no mongo uri configured, using in-memory store")
		gw = memory.NewStore()
	}

	var mod moderation.Gateway = moderation.Permissive{}
	if cfg.RedisAddr != "" {
		rg, err := moderation.NewRedisGateway(ctx, moderation.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("redis unavailable", zap.Error(err))
			os.Exit(1)
		}
		defer func() { _ = rg.Close() }()
		mod = rg
	}

	srv := chat.NewServer(cfg, gw, mod)
	if err := srv.Listen(); err != nil {
		logger.Error("bind failed", zap.String("addr", cfg.BindAddr), zap.Error(err))
		os.Exit(1)
	}

	if cfg.NatsURL != "" {
		rl, err := relay.New(cfg.NatsURL, ids.GenerateString(), srv.Fanout())
		if err != nil {
			logger.Error("relay unavailable", zap.Error(err))
			os.Exit(1)
		}
		defer rl.Close()
		srv.Fanout().SetMirror(rl)
	}

	if cfg.WSAddr != "" {
		go func() {
			if err := srv.ServeWS(ctx, cfg.WSAddr); err != nil {
				logger.Error("ws gateway failed", zap.Error(err))
			}
		}()
	}

	if err := srv.Serve(ctx); err != nil {
		logger.Error("serve failed", zap.Error(err))
		os.Exit(1)
	}
}
