package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/FrankZheng1985/sysafari-logistics-sub020/global"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/logger"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/middleware"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/module/chat/message"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/service/chat"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/service/mgo"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/service/storage"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/errs"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := global.LoadConfig()
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	global.ConfigIds(cfg)

	// Redis：在线快照是尽力而为，连不上只降级不退出
	var online chat.OnlineStore
	if err := global.ConfigRedis(cfg); err != nil {
		logger.Warnf("[main] redis unavailable, presence snapshot disabled: %v", err)
	} else {
		online = storage.NewPresenceStore(storage.GetRedis(), cfg.NodeID, cfg.PresenceTTL)
	}

	// Mongo：消息存储是硬依赖
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := global.ConfigMgo(ctx, cfg); err != nil {
		cancel()
		logger.Errorf("[main] mongo init failed: %v", err)
		os.Exit(1)
	}
	cancel()

	store := message.NewStore(mgo.GetDB())
	{
		ictx, icancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.EnsureIndexes(ictx); err != nil {
			logger.Warnf("[main] ensure indexes: %v", err)
		}
		icancel()
	}

	allow := cfg.OriginAllowList()
	srv := chat.NewServer(chat.ServerConf{
		NodeID:      cfg.NodeID,
		CheckOrigin: middleware.WSCheckOrigin(allow),
	}, store, online)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Cors(allow))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "node": cfg.NodeID})
	})

	// 实时通道
	r.GET("/ws", srv.HandleWS)
	r.POST("/poll", srv.HandlePollOpen)
	r.POST("/poll/:connId", srv.HandlePollSend)
	r.GET("/poll/:connId", srv.HandlePollRecv)

	// 查询面
	r.GET("/api/online/:userId", srv.HandleOnlineQuery)
	r.GET("/api/conversations/:conversationId/messages", func(c *gin.Context) {
		before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
		qctx, qcancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer qcancel()
		msgs, err := store.ListMessages(qctx, c.Param("conversationId"), before, limit)
		if err != nil {
			code, msg := errs.CodeOf(err)
			c.JSON(500, gin.H{"code": code, "msg": msg})
			return
		}
		c.JSON(200, gin.H{"messages": msgs})
	})

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		logger.Infof("[main] chat gateway %s listening on %s", cfg.NodeID, cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[main] listen failed: %v", err)
			os.Exit(1)
		}
	}()

	// ---- 优雅退出 ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("[main] shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = httpSrv.Shutdown(sctx)
	srv.Close()
	_ = storage.CloseRedis()
	_ = mgo.CloseMongo(sctx)
	logger.Sync()
}
