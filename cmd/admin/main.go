package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	persistlog "skirmish.gg/internal/persistence/log"
	"skirmish.gg/internal/sim/arena"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "leaderboard":
			leaderboardCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	serverID := fs.String("id", "", "server id (optional; lists combat log files)")
	_ = fs.Parse(args)

	if *serverID != "" {
		files, err := persistlog.CombatLogFiles(filepath.Join(*dataDir, "servers", *serverID))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Println(filepath.Base(f))
		}
		return
	}

	entries, err := os.ReadDir(filepath.Join(*dataDir, "servers"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	serverID := fs.String("id", "", "server id")
	kind := fs.String("kind", "", "event kind filter: JOIN, LEAVE, SHOT, HIT, KILL, RESPAWN (optional)")
	player := fs.String("player", "", "player id filter; matches subject or other (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	limit := fs.Int("limit", 0, "stop after this many events (0 = all)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*serverID) == "" {
		fmt.Fprintln(os.Stderr, "missing -id")
		os.Exit(2)
	}

	f := eventFilter{
		kind:      strings.ToUpper(strings.TrimSpace(*kind)),
		player:    strings.TrimSpace(*player),
		sinceTick: *sinceTick,
		toTick:    *toTick,
		limit:     *limit,
	}
	n, err := f.dump(os.Stdout, filepath.Join(*dataDir, "servers", *serverID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read combat log:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "events=%d\n", n)
}

type eventFilter struct {
	kind      string
	player    string
	sinceTick uint64
	toTick    uint64
	limit     int
}

// eventLine is one printed event, flattened with its tick.
type eventLine struct {
	Tick uint64 `json:"tick"`
	Time int64  `json:"time"`
	arena.Event
}

func (f eventFilter) match(tick uint64, ev arena.Event) bool {
	if tick < f.sinceTick || (f.toTick > 0 && tick > f.toTick) {
		return false
	}
	if f.kind != "" && ev.Kind != f.kind {
		return false
	}
	if f.player != "" && ev.Player != f.player && ev.Other != f.player {
		return false
	}
	return true
}

func (f eventFilter) dump(out io.Writer, serverDir string) (int, error) {
	enc := json.NewEncoder(out)
	n := 0
	var werr error
	err := persistlog.ReadCombatLog(serverDir, func(e arena.TickLogEntry) bool {
		if f.toTick > 0 && e.Tick > f.toTick {
			return false
		}
		for _, ev := range e.Events {
			if !f.match(e.Tick, ev) {
				continue
			}
			if werr = enc.Encode(eventLine{Tick: e.Tick, Time: e.Time, Event: ev}); werr != nil {
				return false
			}
			n++
			if f.limit > 0 && n >= f.limit {
				return false
			}
		}
		return true
	})
	if err != nil {
		return n, err
	}
	return n, werr
}
