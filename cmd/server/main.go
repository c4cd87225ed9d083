package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	persistlog "skirmish.gg/internal/persistence/log"
	"skirmish.gg/internal/sim/arena"
	"skirmish.gg/internal/sim/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		serverID   = flag.String("id", "arena_1", "server id (labels metrics and index rows)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		envFile    = flag.String("env", ".env", "optional dotenv file with SK_* overrides")
		seed       = flag.Int64("seed", 0, "spawn rng seed (0: tuning value, else time based)")
		disableDB  = flag.Bool("disable_db", false, "disable the combat index")
		disableLog = flag.Bool("disable_combat_log", false, "disable the zstd combat log")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if p := strings.TrimSpace(*envFile); p != "" {
		if err := godotenv.Load(p); err != nil && !os.IsNotExist(err) {
			logger.Fatalf("load env file %s: %v", p, err)
		} else if err == nil {
			logger.Printf("loaded environment from %s", p)
		}
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	cfg := arena.ConfigFromTuning(tune)
	w, err := arena.New(cfg)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetLogger(log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))

	serverDir := filepath.Join(*dataDir, "servers", *serverID)
	if err := os.MkdirAll(serverDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	// Optional: read-model index backend (does not affect the simulation).
	idx, err := openRuntimeIndex(serverDir, *serverID, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}

	archive, err := openArchiveMirror(*dataDir, log.New(os.Stdout, "[archive] ", log.LstdFlags))
	if err != nil {
		logger.Fatalf("archive mirror: %v", err)
	}

	var sinks []arena.TickLogger
	var combatLog *persistlog.CombatLogger
	if !*disableLog {
		combatLog = persistlog.NewCombatLogger(serverDir)
		if archive != nil {
			combatLog.OnFileClosed(archive.Enqueue)
		}
		sinks = append(sinks, combatLog)
	}
	if idx != nil {
		sinks = append(sinks, idx)
	}
	w.SetTickLogger(newMultiTickLogger(sinks...))

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	enableAdminHTTP := envBool("SK_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	mux := newMux(w, idx, archive, *serverID, enableAdminHTTP, logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s tuning=%s", *addr, tp)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
	}

	cancel()
	w.Stop()
	<-worldDone

	if combatLog != nil {
		if err := combatLog.Close(); err != nil {
			logger.Printf("close combat log: %v", err)
		}
	}
	// The combat log hands its last file to the archive on Close, so drain the archive after.
	archive.Close()
	if idx != nil {
		if err := idx.Close(); err != nil {
			logger.Printf("close index: %v", err)
		}
	}
	logger.Printf("shutdown complete")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiTickLogger []arena.TickLogger

func newMultiTickLogger(ls ...arena.TickLogger) arena.TickLogger {
	var out multiTickLogger
	for _, l := range ls {
		if l == nil {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (m multiTickLogger) WriteTick(entry arena.TickLogEntry) error {
	var errs []error
	for _, l := range m {
		if err := l.WriteTick(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
