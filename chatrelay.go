package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"SupportChat/global"
	"SupportChat/logger"
	mid "SupportChat/middleware"
	midsec "SupportChat/middleware/security"
	chatsvc "SupportChat/module/chat/service"
	"SupportChat/module/chat/store"
	"SupportChat/service/chat"
	"SupportChat/service/mgo"
	redissrv "SupportChat/service/storage/redis"
	"SupportChat/service/sweeper"
	sec "SupportChat/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	port := flag.Int("p", 0, "listen port (overrides CHAT_PORT)")
	host := flag.String("H", "", "listen host (overrides CHAT_HOST)")
	flag.Parse()

	global.Load()
	if *port != 0 {
		global.Config.Port = *port
	}
	if *host != "" {
		global.Config.Host = *host
	}
	global.ConfigIds()

	if global.Config.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; every credential will be refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// durable store
	mgo.StartAsync(ctx, &mgo.Config{
		Uri:         global.Config.MongoURI,
		Database:    global.Config.MongoDB,
		MaxPoolSize: 20,
	})
	if err := mgo.WaitReady(ctx); err != nil {
		logger.Errorf("mongo never became ready: %v", err)
		return
	}
	db := mgo.GetDB()

	idxCtx, idxCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := store.EnsureIndexes(idxCtx, db); err != nil {
		logger.Warnf("index setup failed: %v", err)
	}
	idxCancel()

	messageRepo := store.NewMessageRepo(db)
	sessionRepo := store.NewSessionRepo(db)

	// optional presence mirror
	if global.Config.RedisAddr != "" {
		if err := redissrv.InitRedis(redissrv.Config{
			Addr:     global.Config.RedisAddr,
			Password: global.Config.RedisPass,
			DB:       global.Config.RedisDB,
		}); err != nil {
			logger.Warnf("redis unavailable, presence mirror disabled: %v", err)
		}
	}

	// routing core
	registry := chat.NewRegistry(chat.RegistryConf{Mirror: redissrv.GetRedis()})
	rooms := chat.NewRooms()
	// single fanout worker keeps per-room delivery ordered
	fanout := chat.NewFanout(1, 1024)
	lifecycle := chat.NewSessionManager(chat.SessionConf{
		ConnectWindow: global.Config.ConnectVisibility,
		MessageWindow: global.Config.MessageVisibility,
	}, sessionRepo, messageRepo)
	server := chat.NewServer(chat.ServerConf{
		WelcomeText:   global.Config.WelcomeText,
		WelcomeSender: global.Config.WelcomeSender,
		WelcomeDelay:  global.Config.WelcomeDelay,
	}, registry, rooms, fanout, lifecycle, messageRepo)

	jwtOpts := sec.DefaultOptions(global.JWTSecret())
	gateway := chat.NewWSGateway(server, jwtOpts)

	// retention
	sw := sweeper.New(sweeper.Conf{
		SessionEvery: global.Config.SessionSweepEvery,
		MessageEvery: global.Config.MessageSweepEvery,
		Retention:    global.Config.MessageRetention,
	}, sessionRepo, messageRepo)
	sw.Start()
	defer sw.Stop()

	// HTTP + WS surface
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mid.Origin(global.Config.AllowedOrigins))

	r.GET("/ws", gateway.HandleWS)

	history := chatsvc.NewHistoryAPI(sessionRepo, messageRepo)
	api := r.Group("/api")
	api.GET("/admin/sessions", history.AdminSessions)
	api.GET("/messages/current",
		midsec.Middleware(midsec.Options{JWT: jwtOpts}),
		history.CurrentMessages,
	)
	api.GET("/messages/:sessionId", history.SessionMessages)

	addr := fmt.Sprintf("%s:%d", global.Config.Host, global.Config.Port)
	logger.Infof("[HTTP] listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("HTTP server failed: %v", err)
	}
}
