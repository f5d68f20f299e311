// @title docqa API
// @version 1.0
// @description 单文档 PDF 问答服务
// @host localhost:19970
// @BasePath /api/v1
// @schemes http
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/docqa/backend/internal/infrastructure/config"
	applog "github.com/docqa/backend/internal/infrastructure/log"
	"github.com/docqa/backend/internal/infrastructure/singleton"
	"github.com/docqa/backend/internal/wire"
)

func main() {
	// .env 只补充未设置的环境变量
	_ = godotenv.Load()

	// 初始化日志系统
	applog.Init(nil)

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 单例锁检查：尝试获取端口锁
	listener, err := singleton.CheckAndLock(cfg.Server.HTTPPort)
	if err != nil {
		log.Fatalf("单例锁检查失败: %v", err)
	}
	if listener == nil {
		log.Println("检测到已有实例在运行，当前进程退出")
		os.Exit(0)
	}
	// 关闭临时 listener，实际监听由 HTTP 服务器负责
	_ = listener.Close()

	app, cleanup, err := wire.InitializeAll(cfg)
	if err != nil {
		applog.GetLogger().Error("Failed to initialize application",
			"error", err,
		)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Start(); err != nil {
		applog.GetLogger().Error("Failed to start application",
			"error", err,
		)
		os.Exit(1)
	}

	// 优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	applog.GetLogger().Info("Shutting down application...")
	if err := app.Stop(); err != nil {
		applog.GetLogger().Error("Error during application shutdown",
			"error", err,
		)
	}
	applog.GetLogger().Info("Application stopped")
}
