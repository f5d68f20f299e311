package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	appSession "github.com/docqa/backend/internal/application/session"
	"github.com/docqa/backend/internal/infrastructure/log"
	wshub "github.com/docqa/backend/internal/infrastructure/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// SnapshotType 连接建立后首条消息的类型
const SnapshotType = "session.snapshot"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 本地服务，允许所有来源
	},
}

// WSHandler 会话事件推送
type WSHandler struct {
	hub      *wshub.Hub
	sessions *appSession.Manager
	logger   *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(hub *wshub.Hub, sessions *appSession.Manager) *WSHandler {
	return &WSHandler{
		hub:      hub,
		sessions: sessions,
		logger:   log.NewModuleLogger("websocket", "handler"),
	}
}

// Subscribe 订阅某个文档的会话事件
// GET /api/v1/documents/:id/ws
func (h *WSHandler) Subscribe(c *gin.Context) {
	documentID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "document_id", documentID, "error", err)
		return
	}

	client := wshub.NewConnection(documentID)

	// 先发送当前状态，之后的变化由 Hub 推送
	snapshot, err := json.Marshal(wshub.Notification{
		Type:       SnapshotType,
		DocumentID: documentID,
		Timestamp:  time.Now(),
		Data:       h.sessions.State(documentID),
	})
	if err == nil {
		client.Send <- snapshot
	}

	h.hub.Register(client)
	h.logger.Debug("WebSocket subscribed", "document_id", documentID)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

// readPump 只处理控制帧，断开时注销连接
func (h *WSHandler) readPump(conn *websocket.Conn, client *wshub.Connection) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket read error", "document_id", client.DocumentID, "error", err)
			}
			return
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, client *wshub.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 已关闭该连接
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
