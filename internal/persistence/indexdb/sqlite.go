package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"skirmish.gg/internal/sim/arena"
)

// SQLiteIndex is a queryable read-model of the combat log. Writes are queued and applied by
// a single writer goroutine; a full queue drops the entry instead of blocking the caller.
type SQLiteIndex struct {
	db *sql.DB

	mu     sync.RWMutex // guards ch against send-after-close
	ch     chan req
	closed bool
	wg     sync.WaitGroup
	once   sync.Once

	dropTick atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqFlush
)

type req struct {
	kind reqKind

	tick arena.TickLogEntry
	done chan struct{}
}

// Stats reports queue health.
type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropTickTotal uint64 `json:"drop_tick_total"`
}

// PlayerStats is one leaderboard row.
type PlayerStats struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
	Hits   int    `json:"hits"`
	Shots  int    `json:"shots"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			joined_tick INTEGER NOT NULL,
			joined_at INTEGER NOT NULL,
			left_tick INTEGER,
			left_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS shots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			player TEXT NOT NULL,
			bullet INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_shots_player ON shots(player);`,
		`CREATE TABLE IF NOT EXISTS hits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			victim TEXT NOT NULL,
			shooter TEXT NOT NULL,
			bullet INTEGER NOT NULL,
			damage INTEGER NOT NULL,
			health INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_hits_shooter ON hits(shooter);`,
		`CREATE TABLE IF NOT EXISTS kills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			victim TEXT NOT NULL,
			killer TEXT NOT NULL,
			bullet INTEGER NOT NULL,
			at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_kills_killer ON kills(killer);`,
		`CREATE INDEX IF NOT EXISTS idx_kills_victim ON kills(victim);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry arena.TickLogEntry) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

// Flush blocks until every entry queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTickTotal: s.dropTick.Load(),
	}
}

// TopKillers ranks known sessions by kills, then fewest deaths.
func (s *SQLiteIndex) TopKillers(ctx context.Context, limit int) ([]PlayerStats, error) {
	return TopKillers(ctx, s.db, limit)
}

// TopKillers runs the leaderboard query against an index database opened elsewhere
// (cmd/admin opens the file read-only).
func TopKillers(ctx context.Context, db *sql.DB, limit int) ([]PlayerStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.name,
			(SELECT COUNT(*) FROM kills k WHERE k.killer = s.id) AS kills,
			(SELECT COUNT(*) FROM kills k WHERE k.victim = s.id) AS deaths,
			(SELECT COUNT(*) FROM hits h WHERE h.shooter = s.id) AS hits,
			(SELECT COUNT(*) FROM shots x WHERE x.player = s.id) AS shots
		FROM sessions s
		ORDER BY kills DESC, deaths ASC, s.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PlayerStats, 0, limit)
	for rows.Next() {
		var p PlayerStats
		if err := rows.Scan(&p.ID, &p.Name, &p.Kills, &p.Deaths, &p.Hits, &p.Shots); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertJoin, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(id,name,joined_tick,joined_at) VALUES(?,?,?,?)`)
	updateLeave, _ := s.db.Prepare(`UPDATE sessions SET left_tick=?, left_at=? WHERE id=?`)
	insertShot, _ := s.db.Prepare(`INSERT INTO shots(tick,seq,player,bullet) VALUES(?,?,?,?)`)
	insertHit, _ := s.db.Prepare(`INSERT INTO hits(tick,seq,victim,shooter,bullet,damage,health) VALUES(?,?,?,?,?,?,?)`)
	insertKill, _ := s.db.Prepare(`INSERT INTO kills(tick,seq,victim,killer,bullet,at) VALUES(?,?,?,?,?,?)`)
	stmts := []*sql.Stmt{insertJoin, updateLeave, insertShot, insertHit, insertKill}
	defer func() {
		for _, st := range stmts {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		e := r.tick
		tick := int64(e.Tick)
		for seq, ev := range e.Events {
			ok := true
			switch ev.Kind {
			case arena.EventJoin:
				ok = exec(insertJoin, ev.Player, ev.Name, tick, e.Time)
			case arena.EventLeave:
				ok = exec(updateLeave, tick, e.Time, ev.Player)
			case arena.EventShot:
				ok = exec(insertShot, tick, seq, ev.Player, int64(ev.Bullet))
			case arena.EventHit:
				ok = exec(insertHit, tick, seq, ev.Player, ev.Other, int64(ev.Bullet), ev.Damage, ev.Health)
			case arena.EventKill:
				ok = exec(insertKill, tick, seq, ev.Player, ev.Other, int64(ev.Bullet), e.Time)
			}
			if !ok {
				break
			}
		}
		flushIfNeeded()
	}

	commit()
}
