package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// feedServer is an in-process change feed: it accepts one connection at a
// time, records the subscribe frame, and plays back scripted frames.
type feedServer struct {
	srv      *httptest.Server
	frames   []any
	hold     bool // keep the connection open after playback
	gotUsers chan string
}

func newFeedServer(t *testing.T, frames ...any) *feedServer {
	t.Helper()

	fs := &feedServer{frames: frames, hold: true, gotUsers: make(chan string, 10)}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var frame subscribeFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}
		fs.gotUsers <- frame.UserID

		for _, f := range fs.frames {
			if err := wsjson.Write(ctx, conn, f); err != nil {
				return
			}
		}
		if fs.hold {
			// Hold the connection open until the client goes away.
			conn.Read(ctx)
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *feedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func TestSubscribeReceivesEvents(t *testing.T) {
	noteJSON := json.RawMessage(`{"id": "n1", "title": "Hi", "updated_at": 42}`)
	folderJSON := json.RawMessage(`{"id": "f1", "name": "Work", "created_at": 7}`)

	fs := newFeedServer(t,
		wireEvent{Table: TableNotes, Kind: "insert", After: noteJSON},
		wireEvent{Table: TableFolders, Kind: "delete", Before: folderJSON},
	)

	sub := openSubscription(fs.wsURL(), "user-1", nil)
	defer sub.Unsubscribe()

	select {
	case userID := <-fs.gotUsers:
		if userID != "user-1" {
			t.Errorf("subscribe frame user = %q, want user-1", userID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscribe frame")
	}

	first := waitForEvent(t, sub)
	if first.Table != TableNotes || first.Kind != EventInsert {
		t.Fatalf("first event = %+v, want notes insert", first)
	}
	if first.Note == nil || first.Note.ID != "n1" || first.Note.UpdatedAt != 42 {
		t.Errorf("decoded note = %+v", first.Note)
	}

	second := waitForEvent(t, sub)
	if second.Table != TableFolders || second.Kind != EventDelete {
		t.Fatalf("second event = %+v, want folders delete", second)
	}
	if second.Folder == nil || second.Folder.ID != "f1" {
		t.Errorf("decoded folder = %+v", second.Folder)
	}
}

func TestSubscribeDropsBadFrames(t *testing.T) {
	good := json.RawMessage(`{"id": "n1", "updated_at": 1}`)

	fs := newFeedServer(t,
		map[string]string{"hello": "world"},
		wireEvent{Table: "unknown_table", Kind: "insert", After: good},
		wireEvent{Table: TableNotes, Kind: "vacuum", After: good},
		wireEvent{Table: TableNotes, Kind: "insert"}, // no payload
		wireEvent{Table: TableNotes, Kind: "insert", After: good},
	)

	sub := openSubscription(fs.wsURL(), "user-1", nil)
	defer sub.Unsubscribe()

	event := waitForEvent(t, sub)
	if event.Note == nil || event.Note.ID != "n1" {
		t.Errorf("expected only the valid frame to arrive, got %+v", event)
	}
}

func TestSubscribeDeliversLargeNoteEvent(t *testing.T) {
	// Content has no size ceiling; a payload past the websocket library's
	// default 32 KiB read limit must still arrive intact.
	content := strings.Repeat("x", 64*1024)
	after, err := json.Marshal(map[string]any{
		"id":         "big",
		"content":    content,
		"updated_at": 9,
	})
	if err != nil {
		t.Fatalf("building payload: %v", err)
	}

	fs := newFeedServer(t, wireEvent{Table: TableNotes, Kind: "insert", After: after})
	sub := openSubscription(fs.wsURL(), "user-1", nil)
	defer sub.Unsubscribe()

	event := waitForEvent(t, sub)
	if event.Note == nil || event.Note.ID != "big" {
		t.Fatalf("event = %+v, want the large note", event)
	}
	if len(event.Note.Content) != len(content) {
		t.Errorf("Content length = %d, want %d", len(event.Note.Content), len(content))
	}
}

func TestReconnectWaitsBetweenAttempts(t *testing.T) {
	// The server drops every connection immediately after the subscribe
	// frame; successive dials must be spaced by the backoff, not fired in
	// a tight loop.
	fs := newFeedServer(t)
	fs.hold = false
	sub := openSubscription(fs.wsURL(), "user-1", nil)
	defer sub.Unsubscribe()

	select {
	case <-fs.gotUsers:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first connection")
	}

	start := time.Now()
	select {
	case <-fs.gotUsers:
	case <-time.After(10 * time.Second):
		t.Fatal("subscription did not reconnect")
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("re-dialed after %v, want at least the backoff delay", elapsed)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	fs := newFeedServer(t)

	sub := openSubscription(fs.wsURL(), "user-1", nil)

	sub.Unsubscribe()
	sub.Unsubscribe() // must not panic or hang

	// Events channel must be closed after teardown.
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed events channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed after Unsubscribe")
	}
}

func TestSubscribeWithoutURL(t *testing.T) {
	sub := openSubscription("", "user-1", nil)

	// No URL means an inactive subscription: no events, clean teardown.
	select {
	case event, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event %+v", event)
		}
		t.Fatal("events channel closed before Unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}

	sub.Unsubscribe()
	if _, ok := <-sub.Events(); ok {
		t.Error("expected closed events channel")
	}
}

func TestSubscribeReconnectsAfterFailure(t *testing.T) {
	// The server drops every connection right after the subscribe frame;
	// the subscription must survive the lost connection and keep trying
	// rather than closing its channel.
	fs := newFeedServer(t)
	fs.hold = false
	sub := openSubscription(fs.wsURL(), "user-1", nil)
	defer sub.Unsubscribe()

	// First connection.
	select {
	case <-fs.gotUsers:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first connection")
	}

	// The scripted server returns after playback, dropping the connection;
	// the client should dial again.
	select {
	case <-fs.gotUsers:
	case <-time.After(10 * time.Second):
		t.Fatal("subscription did not reconnect")
	}

	select {
	case _, ok := <-sub.Events():
		if !ok {
			t.Fatal("events channel closed during reconnection")
		}
	default:
	}
}

func waitForEvent(t *testing.T, sub *Subscription) ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if !ok {
			t.Fatal("events channel closed unexpectedly")
		}
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return ChangeEvent{}
	}
}

func TestDecodeEvent(t *testing.T) {
	note := json.RawMessage(`{"id": "n1", "updated_at": 5}`)

	tests := []struct {
		name   string
		frame  wireEvent
		wantOK bool
	}{
		{"note insert", wireEvent{Table: TableNotes, Kind: "insert", After: note}, true},
		{"note update", wireEvent{Table: TableNotes, Kind: "update", After: note}, true},
		{"note delete uses before", wireEvent{Table: TableNotes, Kind: "delete", Before: note}, true},
		{"delete without before", wireEvent{Table: TableNotes, Kind: "delete", After: note}, false},
		{"unknown kind", wireEvent{Table: TableNotes, Kind: "truncate", After: note}, false},
		{"unknown table", wireEvent{Table: "sessions", Kind: "insert", After: note}, false},
		{"missing id", wireEvent{Table: TableNotes, Kind: "insert", After: json.RawMessage(`{}`)}, false},
		{"garbage payload", wireEvent{Table: TableNotes, Kind: "insert", After: json.RawMessage(`[1,2]`)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := decodeEvent(tt.frame)
			if ok != tt.wantOK {
				t.Errorf("decodeEvent ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}
