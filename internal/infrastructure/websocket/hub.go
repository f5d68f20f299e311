// Package websocket 向订阅了某个文档的客户端推送会话事件
package websocket

import (
	"encoding/json"
	"sync"
)

// sendBuffer 每个连接的发送缓冲
const sendBuffer = 32

// Hub WebSocket 连接管理中心
type Hub struct {
	// 按文档 ID 分组的连接
	documents  map[string]map[*Connection]bool
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *Message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// Connection WebSocket 连接
type Connection struct {
	DocumentID string
	Send       chan []byte
}

// NewConnection 创建订阅某个文档的连接
func NewConnection(documentID string) *Connection {
	return &Connection{DocumentID: documentID, Send: make(chan []byte, sendBuffer)}
}

// Message 消息
type Message struct {
	DocumentID string
	Data       []byte
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		documents:  make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message, 64),
		done:       make(chan struct{}),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.documents[conn.DocumentID] == nil {
				h.documents[conn.DocumentID] = make(map[*Connection]bool)
			}
			h.documents[conn.DocumentID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			h.remove(conn)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.documents[msg.DocumentID] {
				select {
				case conn.Send <- msg.Data:
				default:
					// 慢连接直接断开
					h.remove(conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove 调用方持有写锁
func (h *Hub) remove(conn *Connection) {
	group, ok := h.documents[conn.DocumentID]
	if !ok {
		return
	}
	if _, ok := group[conn]; !ok {
		return
	}
	delete(group, conn)
	close(conn.Send)
	if len(group) == 0 {
		delete(h.documents, conn.DocumentID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, group := range h.documents {
		for conn := range group {
			close(conn.Send)
		}
	}
	h.documents = make(map[string]map[*Connection]bool)
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Stop 停止 Hub 并关闭所有连接
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Subscribers 某个文档当前的连接数
func (h *Hub) Subscribers(documentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.documents[documentID])
}

// BroadcastToDocument 向订阅了指定文档的连接广播消息
func (h *Hub) BroadcastToDocument(documentID string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &Message{DocumentID: documentID, Data: jsonData}:
	case <-h.done:
	}
	return nil
}
