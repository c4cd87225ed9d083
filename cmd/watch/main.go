package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"

	"skirmish.gg/internal/observerproto"
	"skirmish.gg/internal/protocol"
)

// watch renders a running arena in the terminal. By default it joins as a player steered from
// the keyboard; -spectate follows the loopback observer stream instead and never joins.
func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		obsURL   = flag.String("observer", "ws://127.0.0.1:8080/admin/v1/observer/ws", "observer ws url for -spectate")
		name     = flag.String("name", "watcher", "player name")
		spectate = flag.Bool("spectate", false, "follow the observer stream instead of joining")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[watch] ", log.LstdFlags)

	var src source
	var err error
	if *spectate {
		src, err = dialObserver(*obsURL)
	} else {
		src, err = dialPlayer(*url, *name)
	}
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}
	defer src.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		logger.Fatalf("screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		logger.Fatalf("screen init: %v", err)
	}
	defer screen.Fini()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	redraw := time.NewTicker(50 * time.Millisecond)
	defer redraw.Stop()

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return
				}
				src.Key(ev)
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-redraw.C:
			snap, self, world, err := src.Latest()
			if err != nil {
				screen.Fini()
				logger.Fatalf("%v", err)
			}
			cols, rows := screen.Size()
			screen.Clear()
			render(screen, viewport{worldW: world.Width, worldH: world.Height, cols: cols, rows: rows}, snap, self)
			screen.Show()
		}
	}
}

type source interface {
	Latest() (snap protocol.SnapshotMsg, self string, world protocol.WorldParams, err error)
	Key(ev *tcell.EventKey)
	Close() error
}

type playerSource struct {
	conn    *websocket.Conn
	welcome protocol.WelcomeMsg
	ctl     controls

	snaps chan protocol.SnapshotMsg
	errs  chan error
	last  protocol.SnapshotMsg
}

func dialPlayer(url, name string) (*playerSource, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, Name: name, Encoding: protocol.EncodingMsgpack}
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, err
	}
	var wel protocol.WelcomeMsg
	if err := conn.ReadJSON(&wel); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	p := &playerSource{
		conn:    conn,
		welcome: wel,
		snaps:   make(chan protocol.SnapshotMsg, 1),
		errs:    make(chan error, 1),
	}
	go p.readLoop()
	return p, nil
}

func (p *playerSource) readLoop() {
	for {
		_, b, err := p.conn.ReadMessage()
		if err != nil {
			p.errs <- err
			return
		}
		snap, err := protocol.DecodeSnapshot(b, p.welcome.Encoding)
		if err != nil {
			continue
		}
		select {
		case <-p.snaps:
		default:
		}
		p.snaps <- snap
	}
}

func (p *playerSource) Latest() (protocol.SnapshotMsg, string, protocol.WorldParams, error) {
	select {
	case err := <-p.errs:
		return p.last, p.welcome.ID, p.welcome.World, fmt.Errorf("connection closed: %w", err)
	case s := <-p.snaps:
		p.last = s
	default:
	}
	return p.last, p.welcome.ID, p.welcome.World, nil
}

func (p *playerSource) Key(ev *tcell.EventKey) {
	if in, ok := p.ctl.apply(ev); ok {
		_ = p.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = p.conn.WriteJSON(in)
	}
}

func (p *playerSource) Close() error { return p.conn.Close() }

// controls turns key presses into INPUT frames. Terminals report presses only, so arrow keys
// latch a heading until 's' stops.
type controls struct {
	dx, dy int
	aim    float64
}

func (c *controls) apply(ev *tcell.EventKey) (protocol.InputMsg, bool) {
	shoot := false
	switch ev.Key() {
	case tcell.KeyUp:
		c.dy = -1
	case tcell.KeyDown:
		c.dy = 1
	case tcell.KeyLeft:
		c.dx = -1
	case tcell.KeyRight:
		c.dx = 1
	case tcell.KeyRune:
		switch ev.Rune() {
		case 's':
			c.dx, c.dy = 0, 0
		case 'a':
			c.aim -= math.Pi / 12
		case 'd':
			c.aim += math.Pi / 12
		case ' ':
			shoot = true
		default:
			return protocol.InputMsg{}, false
		}
	default:
		return protocol.InputMsg{}, false
	}
	aim := c.aim
	return protocol.InputMsg{
		Type:     protocol.TypeInput,
		Up:       ptr(c.dy < 0),
		Down:     ptr(c.dy > 0),
		Left:     ptr(c.dx < 0),
		Right:    ptr(c.dx > 0),
		AimAngle: &aim,
		Shoot:    ptr(shoot),
	}, true
}

// observerSource follows the loopback observer stream without joining the arena.
type observerSource struct {
	conn *websocket.Conn
	boot observerproto.BootstrapMsg

	snaps chan protocol.SnapshotMsg
	errs  chan error
	last  protocol.SnapshotMsg
}

func dialObserver(url string) (*observerSource, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	sub := observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, err
	}
	var boot observerproto.BootstrapMsg
	if err := conn.ReadJSON(&boot); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read BOOTSTRAP: %w", err)
	}
	o := &observerSource{
		conn:  conn,
		boot:  boot,
		snaps: make(chan protocol.SnapshotMsg, 1),
		errs:  make(chan error, 1),
	}
	go o.readLoop()
	return o, nil
}

func (o *observerSource) readLoop() {
	for {
		var snap protocol.SnapshotMsg
		if err := o.conn.ReadJSON(&snap); err != nil {
			o.errs <- err
			return
		}
		select {
		case <-o.snaps:
		default:
		}
		o.snaps <- snap
	}
}

func (o *observerSource) Latest() (protocol.SnapshotMsg, string, protocol.WorldParams, error) {
	select {
	case err := <-o.errs:
		return o.last, "", o.boot.World, fmt.Errorf("observer stream closed: %w", err)
	case s := <-o.snaps:
		o.last = s
	default:
	}
	return o.last, "", o.boot.World, nil
}

func (o *observerSource) Key(*tcell.EventKey) {}
func (o *observerSource) Close() error       { return o.conn.Close() }

func ptr[T any](v T) *T { return &v }
