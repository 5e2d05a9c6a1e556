package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tripvid/video-stats-backend/api"
	"github.com/tripvid/video-stats-backend/internal/catalog"
	"github.com/tripvid/video-stats-backend/internal/platform/config"
	"github.com/tripvid/video-stats-backend/internal/platform/database"
	"github.com/tripvid/video-stats-backend/internal/platform/messaging"
	"github.com/tripvid/video-stats-backend/internal/platform/shutdown"
	"github.com/tripvid/video-stats-backend/internal/rank"
	"github.com/tripvid/video-stats-backend/internal/statistics"
	"github.com/tripvid/video-stats-backend/internal/video"
	"github.com/tripvid/video-stats-backend/pkg/lifecycle"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	// 2. 初始化基础设施
	database.InitDB(cfg.Database.Sqlite)
	database.InitRedis(cfg.Database.Redis)
	if err := messaging.InitNats(cfg.Nats); err != nil {
		panic(fmt.Sprintf("初始化NATS失败: %v", err))
	}

	// 3. 迁移表结构并预热排行榜缓存
	if err := initializeApplication(); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 4. 启动目录事件消费者
	gracefulMgr := lifecycle.NewManager()
	consumerHandle, err := gracefulMgr.NewServiceHandle("catalog-consumer")
	if err != nil {
		panic(err)
	}
	if err := catalog.StartConsumer(consumerHandle, cfg.Nats.ConsumerGroup); err != nil {
		panic(fmt.Sprintf("启动目录事件消费者失败: %v", err))
	}

	// 5. 配置Gin引擎
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	// 6. 启动服务器并等待停机信号
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	coordinator := shutdown.NewCoordinator(gracefulMgr)
	coordinator.ListenForSignalsAndShutdown(server)
}

// initializeApplication 是应用首次启动时执行的初始化总入口
func initializeApplication() error {
	fmt.Println("开始应用初始化...")

	if err := video.PrimeDB(); err != nil {
		return err
	}
	if err := statistics.PrimeDB(); err != nil {
		return err
	}
	if err := rank.WarmupCache(); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}
