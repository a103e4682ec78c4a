package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/driftnotes/drift/internal/entity"
)

// EventKind is the type of row change carried by a realtime event.
type EventKind string

const (
	// EventInsert indicates a new row appeared.
	EventInsert EventKind = "insert"
	// EventUpdate indicates an existing row changed.
	EventUpdate EventKind = "update"
	// EventDelete indicates a row was removed.
	EventDelete EventKind = "delete"
)

// Table names multiplexed over the single realtime channel.
const (
	TableNotes   = "notes"
	TableFolders = "folders"
)

// maxFrameBytes caps a single realtime frame. Generous enough for any
// realistic note payload while still bounding a misbehaving server.
const maxFrameBytes = 16 << 20

// ChangeEvent is one decoded row-change notification. Exactly one of Note
// or Folder is set, matching Table. For deletes the entity carries the
// pre-delete row (only the id is meaningful).
type ChangeEvent struct {
	Table  string
	Kind   EventKind
	Note   *entity.Note
	Folder *entity.Folder
}

// wireEvent is the frame shape delivered by the change feed.
type wireEvent struct {
	Table  string          `json:"table"`
	Kind   string          `json:"kind"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// subscribeFrame is sent once per connection to scope the feed to the
// signed-in user. Filtering happens server-side.
type subscribeFrame struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
}

// Subscription is one logical realtime channel for a signed-in session.
//
// The channel is a persistent background connection: it reconnects with
// capped backoff on any failure, so consumers never manage reconnection
// themselves. Events() is closed when the subscription is torn down.
type Subscription struct {
	url    string
	userID string
	events chan ChangeEvent
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

// Subscribe opens the realtime channel for rows owned by userID,
// multiplexing change events for both the notes and folders tables.
//
// Delivery starts in the background immediately; consume Events() from a
// single goroutine to preserve event order.
func (c *Client) Subscribe(userID string) *Subscription {
	return openSubscription(c.realtimeURL, userID, c.logger)
}

func openSubscription(url, userID string, logger *log.Logger) *Subscription {
	if logger == nil {
		logger = log.New(os.Stderr, "[realtime] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		url:    url,
		userID: userID,
		events: make(chan ChangeEvent, 100),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	s.wg.Add(1)
	go s.run()
	return s
}

// Events returns the ordered stream of change events. The channel is
// closed when Unsubscribe is called.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// Unsubscribe closes the channel and stops delivery. It is idempotent and
// safe to call multiple times or on an already-failed channel.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

// run is the connection supervisor: dial, subscribe, read until failure,
// back off, repeat. The backoff sleep applies to lost connections as well
// as failed dials, so a server that drops clients right after accepting
// them never produces a zero-delay reconnect storm; the backoff resets
// only after a connection has stayed healthy for a while.
func (s *Subscription) run() {
	defer s.wg.Done()
	defer close(s.events)

	if s.url == "" {
		s.logger.Printf("Realtime URL not configured, subscription inactive")
		<-s.ctx.Done()
		return
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	const healthyAfter = time.Minute

	for {
		if s.ctx.Err() != nil {
			return
		}

		conn, err := s.connect()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Printf("Realtime connect failed: %v (retrying in %v)", err, backoff)
		} else {
			start := time.Now()
			s.readLoop(conn)
			_ = conn.Close(websocket.StatusNormalClosure, "")

			if s.ctx.Err() != nil {
				return
			}
			if time.Since(start) >= healthyAfter {
				backoff = time.Second
			}
			s.logger.Printf("Realtime connection lost, reconnecting in %v", backoff)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// connect dials the feed and sends the subscribe frame for this user.
func (s *Subscription) connect() (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial change feed: %w", err)
	}

	// Note content is an opaque payload with no size ceiling; the library's
	// default 32 KiB read limit would kill the connection on any frame
	// carrying a large note.
	conn.SetReadLimit(maxFrameBytes)

	frame := subscribeFrame{Action: "subscribe", UserID: s.userID}
	if err := wsjson.Write(dialCtx, conn, frame); err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "subscribe failed")
		return nil, fmt.Errorf("failed to send subscribe frame: %w", err)
	}

	return conn, nil
}

// readLoop decodes frames onto the events channel until the connection
// fails or the subscription is cancelled.
func (s *Subscription) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			return
		}

		var frame wireEvent
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Printf("Warning: undecodable realtime frame: %v", err)
			continue
		}

		event, ok := decodeEvent(frame)
		if !ok {
			continue
		}

		select {
		case s.events <- event:
		case <-s.ctx.Done():
			return
		}
	}
}

// decodeEvent translates a wire frame into a typed change event. Frames
// for unknown tables or with undecodable payloads are dropped; a bad event
// must never take down the subscription.
func decodeEvent(frame wireEvent) (ChangeEvent, bool) {
	kind := EventKind(frame.Kind)
	switch kind {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return ChangeEvent{}, false
	}

	// Inserts and updates describe the row after the change; deletes only
	// have the row before it.
	payload := frame.After
	if kind == EventDelete {
		payload = frame.Before
	}
	if len(payload) == 0 {
		return ChangeEvent{}, false
	}

	event := ChangeEvent{Table: frame.Table, Kind: kind}
	switch frame.Table {
	case TableNotes:
		var row noteRow
		if err := json.Unmarshal(payload, &row); err != nil || row.ID == "" {
			return ChangeEvent{}, false
		}
		note := noteFromRow(row)
		event.Note = &note
	case TableFolders:
		var row folderRow
		if err := json.Unmarshal(payload, &row); err != nil || row.ID == "" {
			return ChangeEvent{}, false
		}
		folder := folderFromRow(row)
		event.Folder = &folder
	default:
		return ChangeEvent{}, false
	}

	return event, true
}
