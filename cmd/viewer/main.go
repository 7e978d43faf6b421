// viewer 终端参与者：WASD/方向键移动，空格主技能，f 副技能，
// r 发送 "Bonjour"，t 输入聊天，Esc 退出。
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"tickhost/client"
	"tickhost/protocol"
	"tickhost/relay"
	"tickhost/render"
	"tickhost/sim"
)

const (
	// 终端没有按键抬起事件，按下后方向保持一段时间
	holdDuration = 150 * time.Millisecond
	chatHistory  = 6
	// 世界坐标到字符格的缩放（字符高约为宽的两倍）
	cellsPerUnitX = 1.0
	cellsPerUnitZ = 0.5
)

func newLogger(path string) *zap.Logger {
	if path == "" {
		return zap.NewNop()
	}
	ws := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, ws, zapcore.DebugLevel))
}

type viewer struct {
	screen  tcell.Screen
	session *client.Session
	local   sim.ParticipantID
	actor   sim.ActorID
	log     *zap.Logger

	scene *render.Scene

	dir      mgl64.Vec3
	dirUntil time.Time
	actions  sim.ActionBits

	chatting bool
	draft    []rune
	lines    []client.ChatLine
	status   string
}

func main() {
	var (
		addr    string
		room    string
		player  string
		codec   string
		logPath string
	)
	flag.StringVar(&addr, "server", "localhost:8080", "host address")
	flag.StringVar(&room, "room", "", "room id (host default when empty)")
	flag.StringVar(&player, "player", os.Getenv("USER"), "participant id")
	flag.StringVar(&codec, "codec", "msgpack", "wire codec: json or msgpack")
	flag.StringVar(&logPath, "log", "viewer.log", "log file path")
	flag.Parse()

	log := newLogger(logPath)
	defer log.Sync()

	if err := run(addr, room, player, codec, log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr, room, player, codecName string, log *zap.Logger) error {
	codec, err := protocol.CodecByName(codecName)
	if err != nil {
		return err
	}
	chat := make(chan client.ChatLine, 32)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := client.Dial(ctx, addr, client.Options{
		Room:   room,
		Player: sim.ParticipantID(player),
		Codec:  codec,
		Log:    log,
		OnChat: func(l client.ChatLine) {
			select {
			case chat <- l:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer session.Close()
	welcome, err := session.WaitWelcome(ctx)
	if err != nil {
		return fmt.Errorf("join refused: %w", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	v := &viewer{
		screen:  screen,
		session: session,
		local:   welcome.ParticipantID,
		actor:   welcome.ActorID,
		log:     log,
		scene:   render.NewScene(),
	}
	return v.loop(welcome.TickHz, chat)
}

func (v *viewer) loop(tickHz int, chat <-chan client.ChatLine) error {
	if tickHz <= 0 {
		tickHz = protocol.SimTickHz
	}
	inputTicker := time.NewTicker(sim.TickRate(tickHz).Interval())
	defer inputTicker.Stop()
	renderTicker := time.NewTicker(time.Second / protocol.RenderHz)
	defer renderTicker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	last := time.Now()
	for {
		select {
		case ev := <-events:
			if !v.handleEvent(ev) {
				return nil
			}
		case l := <-chat:
			v.lines = append(v.lines, l)
			if len(v.lines) > chatHistory {
				v.lines = v.lines[len(v.lines)-chatHistory:]
			}
		case now := <-inputTicker.C:
			v.sendInput(now)
		case now := <-renderTicker.C:
			v.draw(now.Sub(last))
			last = now
		case <-v.session.Done():
			return fmt.Errorf("disconnected: %w", v.session.Err())
		}
	}
}

// sendInput 每个 Tick 上送一帧；技能位按下后只随下一帧发送一次
func (v *viewer) sendInput(now time.Time) {
	dir := mgl64.Vec3{}
	if now.Before(v.dirUntil) {
		dir = v.dir
	}
	if err := v.session.SendInput(sim.NewIntentFrame(dir, v.actions)); err != nil {
		v.log.Warn("send input", zap.Error(err))
	}
	v.actions = 0
}

func (v *viewer) press(dir mgl64.Vec3) {
	v.dir = dir
	v.dirUntil = time.Now().Add(holdDuration)
}

func (v *viewer) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if v.chatting {
			v.handleChatKey(ev)
			return true
		}
		switch ev.Key() {
		case tcell.KeyEscape:
			return false
		case tcell.KeyUp:
			v.press(mgl64.Vec3{0, 0, -1})
		case tcell.KeyDown:
			v.press(mgl64.Vec3{0, 0, 1})
		case tcell.KeyLeft:
			v.press(mgl64.Vec3{-1, 0, 0})
		case tcell.KeyRight:
			v.press(mgl64.Vec3{1, 0, 0})
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'w':
				v.press(mgl64.Vec3{0, 0, -1})
			case 's':
				v.press(mgl64.Vec3{0, 0, 1})
			case 'a':
				v.press(mgl64.Vec3{-1, 0, 0})
			case 'd':
				v.press(mgl64.Vec3{1, 0, 0})
			case ' ':
				v.actions |= sim.ActionPrimary
			case 'f':
				v.actions |= sim.ActionSecondary
			case 'r':
				v.sendChat("Bonjour")
			case 't':
				v.chatting = true
				v.draft = v.draft[:0]
			case 'q':
				return false
			}
		}
	}
	return true
}

func (v *viewer) handleChatKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		v.chatting = false
	case tcell.KeyEnter:
		if len(v.draft) > 0 {
			v.sendChat(string(v.draft))
		}
		v.chatting = false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(v.draft) > 0 {
			v.draft = v.draft[:len(v.draft)-1]
		}
	case tcell.KeyRune:
		v.draft = append(v.draft, ev.Rune())
	}
}

func (v *viewer) sendChat(content string) {
	if err := v.session.SendChat(content); err != nil {
		v.status = "chat failed: " + err.Error()
		v.log.Warn("send chat", zap.Error(err))
	}
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// facingGlyph 朝向的八方向箭头（屏幕 +Z 向下）
func facingGlyph(f mgl64.Vec3) rune {
	glyphs := []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}
	angle := math.Atan2(f.Z(), f.X())
	idx := int(math.Round(angle/(math.Pi/4))+8) % 8
	return glyphs[idx]
}

func (v *viewer) toCell(p mgl64.Vec3, w, h int) (int, int, bool) {
	x := int(math.Round(p.X()*cellsPerUnitX)) + w/2
	y := int(math.Round(p.Z()*cellsPerUnitZ)) + (h-chatHistory-2)/2 + 1
	return x, y, x >= 0 && x < w && y >= 1 && y < h-chatHistory-1
}

func (v *viewer) putStr(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (v *viewer) draw(dt time.Duration) {
	v.screen.Clear()
	w, h := v.screen.Size()

	snap, ok := v.session.Latest()
	header := fmt.Sprintf(" %s | waiting for state", v.local)
	if ok {
		header = fmt.Sprintf(" %s | tick %d | v%d | actors %d | projectiles %d | WASD move, space/f fire, r bonjour, t chat, Esc quit",
			v.local, snap.Value.Tick, snap.Value.Version, len(snap.Value.Actors), len(snap.Value.Projectiles))
	}
	v.putStr(0, 0, header, tcell.StyleDefault.Reverse(true))

	if ok {
		for _, p := range snap.Value.Projectiles {
			x, y, in := v.toCell(p.Position, w, h)
			if !in {
				continue
			}
			glyph := 'o'
			if p.Template == sim.TemplatePhysxBall {
				glyph = '*'
			}
			v.screen.SetContent(x, y, glyph, nil, tcell.StyleDefault.Foreground(tcell.ColorYellow))
		}
		for _, f := range v.scene.Frame(snap.Value.Actors, dt) {
			x, y, in := v.toCell(f.Position, w, h)
			if !in {
				continue
			}
			style := tcell.StyleDefault.Foreground(toTcell(f.Color))
			if f.Actor == v.actor {
				style = style.Bold(true)
			}
			v.screen.SetContent(x, y, '@', nil, style)
			v.screen.SetContent(x+1, y, facingGlyph(f.Facing), nil, style)
		}
	}

	base := h - chatHistory - 1
	for i, l := range v.lines {
		style := tcell.StyleDefault
		if l.Provenance == relay.ProvenanceOwn {
			style = style.Foreground(tcell.ColorGreen)
		}
		v.putStr(1, base+i, l.Text, style)
	}
	switch {
	case v.chatting:
		v.putStr(0, h-1, "say: "+string(v.draft), tcell.StyleDefault.Reverse(true))
	case v.status != "":
		v.putStr(0, h-1, v.status, tcell.StyleDefault.Foreground(tcell.ColorRed))
	}
	v.screen.Show()
}
