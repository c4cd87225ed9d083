package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"skirmish.gg/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	serverID := fs.String("id", "", "server id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	player := fs.String("player", "", "player id filter (kills)")
	_ = fs.Parse(args)

	q := "top"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*serverID) == "" {
			fmt.Fprintln(os.Stderr, "missing -id or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "servers", *serverID, "index", "combat.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "top":
		top, err := indexdb.TopKillers(context.Background(), db, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, p := range top {
			printJSON(p)
		}

	case "sessions":
		rows, err := db.Query(`SELECT id,name,joined_tick,joined_at,left_tick,left_at FROM sessions ORDER BY joined_tick DESC, id LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID         string        `json:"id"`
				Name       string        `json:"name"`
				JoinedTick int64         `json:"joined_tick"`
				JoinedAt   int64         `json:"joined_at"`
				LeftTick   sql.NullInt64 `json:"-"`
				LeftAt     sql.NullInt64 `json:"-"`
				Left       *int64        `json:"left_tick,omitempty"`
				LeftAtMS   *int64        `json:"left_at,omitempty"`
			}
			if err := rows.Scan(&r.ID, &r.Name, &r.JoinedTick, &r.JoinedAt, &r.LeftTick, &r.LeftAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			if r.LeftTick.Valid {
				r.Left = &r.LeftTick.Int64
			}
			if r.LeftAt.Valid {
				r.LeftAtMS = &r.LeftAt.Int64
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "kills":
		query := `SELECT tick,victim,killer,bullet,at FROM kills ORDER BY id DESC LIMIT ?`
		qargs := []any{*limit}
		if p := strings.TrimSpace(*player); p != "" {
			query = `SELECT tick,victim,killer,bullet,at FROM kills WHERE victim=? OR killer=? ORDER BY id DESC LIMIT ?`
			qargs = []any{p, p, *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick   int64  `json:"tick"`
				Victim string `json:"victim"`
				Killer string `json:"killer"`
				Bullet int64  `json:"bullet"`
				At     int64  `json:"at"`
			}
			if err := rows.Scan(&r.Tick, &r.Victim, &r.Killer, &r.Bullet, &r.At); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-id SERVER|-db PATH] [-limit N] [-player ID] top|sessions|kills")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
