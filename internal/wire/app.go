package wire

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/docqa/backend/internal/infrastructure/discovery"
	applog "github.com/docqa/backend/internal/infrastructure/log"
	"github.com/docqa/backend/internal/infrastructure/secret"
	"github.com/docqa/backend/internal/infrastructure/websocket"
	"github.com/docqa/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer
	wsHub      *websocket.Hub
	bridge     *websocket.Bridge
	advertiser *discovery.Advertiser
	secrets    *secret.FileStore
	logger     *slog.Logger

	stopWatch context.CancelFunc
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	bridge *websocket.Bridge,
	advertiser *discovery.Advertiser,
	secrets *secret.FileStore,
) *App {
	return &App{
		HTTPServer: httpServer,
		MCPServer:  mcpServer,
		wsHub:      wsHub,
		bridge:     bridge,
		advertiser: advertiser,
		secrets:    secrets,
		logger:     applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting docqa backend application")

	// 推送链路：事件总线 -> Bridge -> Hub -> WebSocket
	a.wsHub.Start()
	a.bridge.Start()

	// 外部修改凭据文件后自动生效
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatch = cancel
	if err := a.secrets.Watch(ctx, nil); err != nil {
		a.logger.Warn("Secret watcher disabled", "error", err)
	}

	go func() {
		if err := a.HTTPServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	if err := a.advertiser.Start(); err != nil {
		// 局域网发现是可选功能
		a.logger.Warn("Failed to start mDNS advertiser", "error", err)
	}

	// MCP 服务器通过 HTTP Handler 提供服务，已注册 /mcp/sse 端点
	a.logger.Info("docqa backend application started successfully")
	return nil
}

// Stop 停止所有服务
// 数据库、事件总线和索引由 InitializeAll 返回的 cleanup 释放
func (a *App) Stop() error {
	a.logger.Info("Stopping docqa backend application")

	a.advertiser.Stop()

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
		return err
	}

	a.bridge.Stop()
	a.wsHub.Stop()
	if a.stopWatch != nil {
		a.stopWatch()
	}

	a.logger.Info("docqa backend application stopped successfully")
	return nil
}
