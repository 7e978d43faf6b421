// Package client 参与者一侧的会话：连接主机、上送意图帧与聊天，
// 接收复制快照供本地渲染循环读取，并在本地对聊天来源做分类。
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tickhost/protocol"
	"tickhost/relay"
	"tickhost/render"
	"tickhost/sim"
)

// ErrClosed 会话已关闭
var ErrClosed = errors.New("client: session closed")

// ChatLine 已按本地参与者分类的聊天行
type ChatLine struct {
	Message    relay.ChatMessage
	Provenance relay.Provenance
	Text       string
}

// Options 会话参数
type Options struct {
	Room   string
	Player sim.ParticipantID
	// Codec 为空时使用 JSON
	Codec protocol.Codec
	Log   *zap.Logger
	// OnChat 在读协程中同步调用，不应阻塞
	OnChat func(ChatLine)
}

// Session 一条到主机的连接
type Session struct {
	ws     *websocket.Conn
	codec  protocol.Codec
	log    *zap.Logger
	onChat func(ChatLine)

	writeMu sync.Mutex
	seq     int64

	welcomeOnce sync.Once
	welcomed    chan struct{}
	welcome     protocol.Welcome

	latest      render.Latest[protocol.State]
	hostVersion uint64

	done    chan struct{}
	errMu   sync.Mutex
	err     error
	closeMu sync.Once
}

// WSURL 由 http(s) 地址或 host:port 生成 /ws 接入地址
func WSURL(base string, opts Options) (string, error) {
	if !strings.Contains(base, "://") {
		base = "ws://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	q := u.Query()
	if opts.Room != "" {
		q.Set("room", opts.Room)
	}
	q.Set("player", string(opts.Player))
	if opts.Codec != nil {
		q.Set("codec", opts.Codec.Name())
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial 建立连接并启动读协程；不等待 welcome
func Dial(ctx context.Context, base string, opts Options) (*Session, error) {
	if opts.Player == "" {
		return nil, fmt.Errorf("client: empty player id")
	}
	if opts.Codec == nil {
		opts.Codec = protocol.JSON
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	target, err := WSURL(base, opts)
	if err != nil {
		return nil, err
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	s := &Session{
		ws:       ws,
		codec:    opts.Codec,
		log:      opts.Log.With(zap.String("player", string(opts.Player))),
		onChat:   opts.OnChat,
		welcomed: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// WaitWelcome 阻塞直到收到 welcome、会话结束或 ctx 取消
func (s *Session) WaitWelcome(ctx context.Context) (protocol.Welcome, error) {
	select {
	case <-s.welcomed:
		return s.welcome, nil
	case <-s.done:
		return protocol.Welcome{}, s.Err()
	case <-ctx.Done():
		return protocol.Welcome{}, ctx.Err()
	}
}

// Local 本地参与者标识；welcome 之前为空
func (s *Session) Local() sim.ParticipantID {
	select {
	case <-s.welcomed:
		return s.welcome.ParticipantID
	default:
		return ""
	}
}

// Latest 最近收到的复制快照
func (s *Session) Latest() (render.Versioned[protocol.State], bool) {
	return s.latest.Load()
}

// Done 读协程退出后关闭
func (s *Session) Done() <-chan struct{} { return s.done }

// Err 会话结束原因
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// SendInput 上送一个 Tick 的意图帧；序列号在写锁内分配，保证按序发出
func (s *Session) SendInput(f sim.IntentFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.seq++
	return s.writeLocked(protocol.MsgInput, protocol.Input{
		DX:      f.Direction.X(),
		DY:      f.Direction.Y(),
		DZ:      f.Direction.Z(),
		Buttons: uint8(f.Actions),
		Seq:     s.seq,
	})
}

// SendChat 第一跳：以自己的 Actor 提交聊天
func (s *Session) SendChat(content string) error {
	return s.write(protocol.MsgChat, protocol.Chat{Content: content})
}

// SendChatAs 第一跳：指定 Actor 提交（无输入权威时主机拒绝）
func (s *Session) SendChatAs(actor sim.ActorID, content string) error {
	return s.write(protocol.MsgChat, protocol.Chat{Actor: actor, Content: content})
}

func (s *Session) write(t string, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(t, payload)
}

// writeLocked 调用方须持有 writeMu
func (s *Session) writeLocked(t string, payload any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	b, err := s.codec.Encode(t, payload)
	if err != nil {
		return err
	}
	frame := websocket.TextMessage
	if s.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	_ = s.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.ws.WriteMessage(frame, b)
}

// Close 发送关闭帧并断开
func (s *Session) Close() error {
	var err error
	s.closeMu.Do(func() {
		s.setErr(ErrClosed)
		s.writeMu.Lock()
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.ws.Close()
	})
	<-s.done
	return err
}

func (s *Session) readLoop() {
	defer close(s.done)
	for {
		_, payload, err := s.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.setErr(err)
			} else {
				s.setErr(ErrClosed)
			}
			return
		}
		env, err := s.codec.DecodeEnvelope(payload)
		if err != nil {
			s.log.Warn("decode envelope", zap.Error(err))
			continue
		}
		if err := s.handle(env); err != nil {
			s.log.Warn("handle message", zap.String("type", env.T), zap.Error(err))
		}
	}
}

func (s *Session) handle(env protocol.Envelope) error {
	switch env.T {
	case protocol.MsgWelcome:
		w, err := protocol.DecodePayload[protocol.Welcome](env)
		if err != nil {
			return err
		}
		s.welcomeOnce.Do(func() {
			s.welcome = w
			close(s.welcomed)
		})
	case protocol.MsgState:
		st, err := protocol.DecodePayload[protocol.State](env)
		if err != nil {
			return err
		}
		// 只保留更新的版本
		if st.Version < s.hostVersion {
			return nil
		}
		s.hostVersion = st.Version
		s.latest.Publish(st)
	case protocol.MsgChatRelay:
		msg, err := protocol.DecodePayload[protocol.ChatRelay](env)
		if err != nil {
			return err
		}
		if s.onChat == nil {
			return nil
		}
		local := s.Local()
		s.onChat(ChatLine{
			Message:    msg,
			Provenance: relay.Classify(msg, local),
			Text:       relay.Format(msg, local),
		})
	}
	return nil
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
