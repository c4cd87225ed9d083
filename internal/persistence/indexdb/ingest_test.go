package indexdb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"skirmish.gg/internal/sim/arena"
)

func TestIngestIndex_RetriesThenDelivers(t *testing.T) {
	var mu sync.Mutex
	reqCount := 0
	var got []ingestEvent

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqCount++
		thisReq := reqCount
		mu.Unlock()

		if r.Header.Get("x-sk-index-token") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if thisReq <= 2 {
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}

		var body struct {
			Events []ingestEvent `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		got = append(got, body.Events...)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	idx, err := OpenIngest(IngestConfig{
		Endpoint:      srv.URL,
		Token:         "secret",
		ServerID:      "arena-1",
		BatchSize:     2,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.WriteTick(arena.TickLogEntry{Tick: 1, Events: []arena.Event{{Kind: arena.EventShot, Player: "a", Bullet: 1}}})
	_ = idx.WriteTick(arena.TickLogEntry{Tick: 2, Events: []arena.Event{{Kind: arena.EventKill, Player: "b", Other: "a"}}})
	_ = idx.WriteTick(arena.TickLogEntry{Tick: 3})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("delivered=%d want=3", len(got))
	}
	if got[0].ServerID != "arena-1" || got[0].Kind != "tick" || got[1].Payload.Events[0].Kind != arena.EventKill {
		t.Fatalf("unexpected events: %+v", got)
	}
	if reqCount != 4 {
		t.Fatalf("requests=%d want=4", reqCount)
	}
}

func TestOpenIngestValidates(t *testing.T) {
	if _, err := OpenIngest(IngestConfig{ServerID: "x"}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
	if _, err := OpenIngest(IngestConfig{Endpoint: "http://127.0.0.1:1"}); err == nil {
		t.Fatalf("expected error for empty server id")
	}
}

func TestIngestIndex_WritesRacingCloseDoNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	idx, err := OpenIngest(IngestConfig{Endpoint: srv.URL, ServerID: "arena-1", FlushInterval: time.Hour})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				_ = idx.WriteTick(arena.TickLogEntry{Tick: uint64(n)})
			}
		}()
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()
}
