package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 64
)

// Broadcast is a peer on the ephemeral broadcast relay. Sends are
// fire-and-forget; a full buffer or dead connection drops the event rather
// than blocking the caller.
type Broadcast struct {
	conn *websocket.Conn

	mu       sync.Mutex
	handlers []func(TypingEvent)

	send chan []byte
	done chan struct{}
}

// DialBroadcast connects to the relay. Auth is via ?token=xxx query param.
func DialBroadcast(ctx context.Context, url, token string) (*Broadcast, error) {
	conn, _, err := websocket.Dial(ctx, url+"?token="+token, nil)
	if err != nil {
		return nil, err
	}
	return &Broadcast{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}, nil
}

// OnTyping registers a handler for inbound typing events.
func (b *Broadcast) OnTyping(fn func(TypingEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

// SendTyping broadcasts local typing state. Best effort.
func (b *Broadcast) SendTyping(ev TypingEvent) {
	evt, err := NewEvent(EventTypeTyping, &ev.ChannelID, ev)
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case b.send <- data:
	default:
	}
}

// Run starts the read and write pumps and blocks until ctx is cancelled or
// the connection dies.
func (b *Broadcast) Run(ctx context.Context) {
	go b.writePump(ctx)
	b.readPump(ctx)
}

func (b *Broadcast) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	b.conn.Close(websocket.StatusNormalClosure, "")
}

func (b *Broadcast) readPump(ctx context.Context) {
	for {
		var event Event
		if err := wsjson.Read(ctx, b.conn, &event); err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
				log.Printf("broadcast: read error: %v", err)
			}
			return
		}
		b.handleEvent(event)
	}
}

func (b *Broadcast) handleEvent(event Event) {
	switch event.Type {
	case EventTypeTyping:
		var typing TypingEvent
		if err := json.Unmarshal(event.Payload, &typing); err != nil {
			log.Printf("broadcast: bad typing payload: %v", err)
			return
		}

		b.mu.Lock()
		handlers := make([]func(TypingEvent), len(b.handlers))
		copy(handlers, b.handlers)
		b.mu.Unlock()

		for _, fn := range handlers {
			fn(typing)
		}

	case EventTypePong:
		// Keepalive answer; nothing to do.

	case EventTypeError:
		var relayErr ErrorPayload
		if err := json.Unmarshal(event.Payload, &relayErr); err != nil {
			log.Printf("broadcast: bad error payload: %v", err)
			return
		}
		log.Printf("broadcast: relay error %s: %s", relayErr.Code, relayErr.Message)
	}
}

func (b *Broadcast) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-b.send:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := b.conn.Write(wctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Printf("broadcast: write error: %v", err)
				return
			}

		case <-ticker.C:
			// Envelope-level keepalive; the relay answers with a pong event.
			ping, err := json.Marshal(Event{Type: EventTypePing, Timestamp: time.Now().Unix()})
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err = b.conn.Write(wctx, websocket.MessageText, ping)
			cancel()
			if err != nil {
				return
			}

		case <-b.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
