package arena

import (
	"io"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"skirmish.gg/internal/protocol"
)

// Clock is the time source of a world. Cooldowns and respawn deadlines are differences of
// its readings, so it must be monotonic; time.Now is.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type ConnectRequest struct {
	Name     string
	Encoding string
	Out      chan []byte
	Resp     chan ConnectResponse
}

type ConnectResponse struct {
	Welcome protocol.WelcomeMsg
	// Refused carries a protocol error code when the world did not admit the session.
	Refused string
}

type InputEnvelope struct {
	SessionID string
	Input     protocol.InputMsg
}

type clientState struct {
	Name     string
	Encoding string
	Out      chan []byte
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg   Config
	clock Clock
	rng   *rand.Rand
	newID func() string

	store   *Store
	clients map[string]*clientState

	tick     uint64
	lastStep time.Time

	connect    chan ConnectRequest
	disconnect chan string
	inbox      chan InputEnvelope
	stateReq   chan StateRequest
	stop       chan struct{}
	done       chan struct{}
	stopped    atomic.Bool

	logger     *log.Logger
	tickLogger TickLogger
	pending    []Event

	counters counters
	metrics  atomic.Value
}

type Option func(*World)

// WithClock replaces the wall clock; tests drive the world with a manual one.
func WithClock(c Clock) Option { return func(w *World) { w.clock = c } }

// WithIDGenerator replaces the session id generator (uuid v4 by default).
func WithIDGenerator(f func() string) Option { return func(w *World) { w.newID = f } }

func New(cfg Config, opts ...Option) (*World, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := &World{
		cfg:        cfg,
		clock:      systemClock{},
		rng:        rand.New(rand.NewSource(seed)),
		newID:      uuid.NewString,
		store:      NewStore(),
		clients:    map[string]*clientState{},
		connect:    make(chan ConnectRequest, 64),
		disconnect: make(chan string, 64),
		inbox:      make(chan InputEnvelope, 1024),
		stateReq:   make(chan StateRequest, 16),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.lastStep = w.clock.Now()
	w.publishMetrics(0)
	return w, nil
}

func (w *World) SetLogger(l *log.Logger) {
	if l != nil {
		w.logger = l
	}
}

func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

func (w *World) Connect() chan<- ConnectRequest { return w.connect }
func (w *World) Disconnect() chan<- string      { return w.disconnect }
func (w *World) Inbox() chan<- InputEnvelope    { return w.inbox }

// Done is closed once Run has returned.
func (w *World) Done() <-chan struct{} { return w.done }

func (w *World) Config() Config { return w.cfg }

// Params is the client-facing subset of the config sent in WELCOME.
func (w *World) Params() protocol.WorldParams {
	return protocol.WorldParams{
		Width:        w.cfg.Width,
		Height:       w.cfg.Height,
		TickRateHz:   w.cfg.TickRateHz,
		BroadcastHz:  w.cfg.BroadcastHz,
		PlayerRadius: w.cfg.PlayerRadius,
		BulletRadius: w.cfg.ProjectileRadius,
	}
}

func (w *World) welcome(id, encoding string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Encoding:        encoding,
		World:           w.Params(),
	}
}
