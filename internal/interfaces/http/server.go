package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/docqa/backend/docs" // Swagger docs
	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/log"
	"github.com/docqa/backend/internal/interfaces/http/handler"
	"github.com/docqa/backend/internal/interfaces/http/middleware"
	"github.com/docqa/backend/internal/interfaces/mcp"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	cfg *config.Config,
	documentHandler *handler.DocumentHandler,
	qaHandler *handler.QAHandler,
	settingsHandler *handler.SettingsHandler,
	wsHandler *handler.WSHandler,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.RequestID(), middleware.EnsureUTF8JSON())
	// multipart 超出部分落到临时文件
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20

	logger := log.NewModuleLogger("http", "server")

	api := router.Group("/api/v1")
	{
		documents := api.Group("/documents")
		{
			documents.POST("", documentHandler.Upload)
			documents.GET("", documentHandler.List)
			documents.GET("/:id", documentHandler.Get)
			documents.DELETE("/:id", documentHandler.Delete)
			documents.POST("/:id/reindex", documentHandler.Reindex)

			// 问答相关路由
			documents.POST("/:id/ask", qaHandler.Ask)
			documents.GET("/:id/summarize", qaHandler.Summarize)
			documents.GET("/:id/faq", qaHandler.FAQ)
			documents.GET("/:id/history", qaHandler.History)

			documents.GET("/:id/ws", wsHandler.Subscribe)
		}

		settings := api.Group("/settings")
		{
			settings.GET("/api-key", settingsHandler.GetAPIKey)
			settings.POST("/api-key", settingsHandler.SetAPIKey)
			settings.DELETE("/api-key", settingsHandler.DeleteAPIKey)
		}
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: cfg.Server.HTTPPort,
		logger:   logger,
	}
}

// Handler 返回路由，测试时直接使用
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:              s.httpPort,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
