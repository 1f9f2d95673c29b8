package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// notifyChannel matches the pg_notify channel used by the message-insert
// trigger in the schema.
const notifyChannel = "pysend_messages"

// Subscription is a handle to an active message subscription. Close is safe
// to call more than once and from any goroutine.
type Subscription struct {
	listener *Listener
	id       uint64
	once     sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.listener.mu.Lock()
		delete(s.listener.subs, s.id)
		s.listener.mu.Unlock()
	})
}

type subscriber struct {
	channelID uuid.UUID // uuid.Nil subscribes to all channels (inbox scope)
	fn        func(MessageEvent)
}

// Listener dispatches Postgres row-insert notifications to subscribers. It
// holds one dedicated connection; if the connection drops, the next poll
// cycle covers the gap and Run re-establishes the LISTEN.
type Listener struct {
	pool *pgxpool.Pool

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscriber
}

func NewListener(pool *pgxpool.Pool) *Listener {
	return &Listener{
		pool: pool,
		subs: make(map[uint64]*subscriber),
	}
}

// SubscribeChannel delivers inserts for one channel.
func (l *Listener) SubscribeChannel(channelID uuid.UUID, fn func(MessageEvent)) *Subscription {
	return l.subscribe(channelID, fn)
}

// SubscribeInbox delivers inserts for every channel; used to detect messages
// destined for channels other than the open one.
func (l *Listener) SubscribeInbox(fn func(MessageEvent)) *Subscription {
	return l.subscribe(uuid.Nil, fn)
}

func (l *Listener) subscribe(channelID uuid.UUID, fn func(MessageEvent)) *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.subs[id] = &subscriber{channelID: channelID, fn: fn}
	return &Subscription{listener: l, id: id}
}

// Run blocks listening for notifications until ctx is cancelled. Call in a
// goroutine.
func (l *Listener) Run(ctx context.Context) {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("realtime: listen error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var ev MessageEvent
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			log.Printf("realtime: bad notification payload: %v", err)
			continue
		}
		l.dispatch(ev)
	}
}

func (l *Listener) dispatch(ev MessageEvent) {
	l.mu.Lock()
	var fns []func(MessageEvent)
	for _, sub := range l.subs {
		if sub.channelID == uuid.Nil || sub.channelID == ev.ChannelID {
			fns = append(fns, sub.fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
