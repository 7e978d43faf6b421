package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tickhost/protocol"
	"tickhost/sim"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws    *websocket.Conn
	codec protocol.Codec

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec) *ClientConn {
	return &ClientConn{
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, 64),
	}
}

// Codec 连接选定的编解码器
func (c *ClientConn) Codec() protocol.Codec { return c.codec }

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃新消息（防止阻塞 Tick）
		return false
	}
}

// Close 关闭发送队列，写协程写完剩余消息后关闭连接
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(frame, msg); err != nil {
			return
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// readPump 读取客户端消息：input 注入房间，chat 作为第一跳提交
func (c *ClientConn) readPump(room *Room, playerID PlayerID) {
	defer c.ws.Close()
	// 读泵退出时，通知房间在 Tick 线程中移除该玩家
	defer room.RequestLeave(playerID)
	c.ws.SetReadLimit(1 << 20) // 1MB
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		env, err := c.codec.DecodeEnvelope(payload)
		if err != nil {
			continue
		}
		switch env.T {
		case protocol.MsgInput:
			in, err := protocol.DecodePayload[protocol.Input](env)
			if err != nil {
				continue
			}
			room.OnInput(inputFromMessage(playerID, in))
		case protocol.MsgChat:
			msg, err := protocol.DecodePayload[protocol.Chat](env)
			if err != nil {
				continue
			}
			// 来源取连接身份，不信任消息内容
			room.OnChat(playerID, msg.Actor, msg.Content)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?room=room-1&player=alice&codec=msgpack
func HandleWS(w http.ResponseWriter, r *http.Request) {
	GetRoomManager().ServeWS(w, r)
}

// ServeWS 按房间管理器接入连接
func (m *RoomManager) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room")
	if roomID == "" {
		roomID = m.cfg.DefaultRoom
	}
	playerID := q.Get("player")
	if playerID == "" {
		http.Error(w, "missing player query", http.StatusBadRequest)
		return
	}
	codec, err := protocol.CodecByName(q.Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	room := m.GetOrCreateRoom(roomID)
	client := NewClientConn(ws, codec)
	if _, err := room.JoinPlayer(sim.ParticipantID(playerID), client); err != nil {
		reason := "join failed"
		if errors.Is(err, ErrDuplicatePlayer) {
			reason = "player already in room"
		}
		Log.Infof("join refused: room=%s player=%s err=%v", roomID, playerID, err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}

	go client.writePump()
	go client.readPump(room, sim.ParticipantID(playerID))
}
