package chat

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pysend/pysend/internal/domain"
)

// Reconciler merges messages from the push subscription and the periodic
// poll into one de-duplicated timeline for the open channel, and routes
// messages for other channels to the unread aggregator. Every message passes
// through Ingest exactly once per id, so the two sources are safe to race.
type Reconciler struct {
	selfID uuid.UUID
	unread *Unread

	mu       sync.Mutex
	epoch    uint64
	open     uuid.UUID
	seen     map[uuid.UUID]struct{}
	timeline []domain.Message
	onAppend func(domain.Message)
}

func NewReconciler(selfID uuid.UUID, unread *Unread) *Reconciler {
	return &Reconciler{
		selfID: selfID,
		unread: unread,
		seen:   make(map[uuid.UUID]struct{}),
	}
}

// OnAppend registers the render hook for timeline appends.
func (r *Reconciler) OnAppend(fn func(domain.Message)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAppend = fn
}

// Reset switches the open channel, clears the de-duplication set and
// timeline, and returns the new epoch. Sources attached for a previous epoch
// become no-ops.
func (r *Reconciler) Reset(channelID uuid.UUID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	r.open = channelID
	r.seen = make(map[uuid.UUID]struct{})
	r.timeline = nil
	return r.epoch
}

// Epoch returns the current epoch; sources capture it at attach time.
func (r *Reconciler) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// Ingest is the single append operation. An id already seen is a no-op; a
// stale epoch (late callback after teardown) is a no-op. A message is routed
// to exactly one of two paths: the open timeline, or unread+notify. A
// message authored by the acting user is never treated as incoming.
func (r *Reconciler) Ingest(epoch uint64, msg domain.Message) bool {
	return r.ingest(&epoch, msg)
}

// IngestLatest ingests under the current epoch. Used by the session-scoped
// inbox source, which outlives channel switches.
func (r *Reconciler) IngestLatest(msg domain.Message) bool {
	return r.ingest(nil, msg)
}

func (r *Reconciler) ingest(epoch *uint64, msg domain.Message) bool {
	r.mu.Lock()
	if epoch != nil && *epoch != r.epoch {
		r.mu.Unlock()
		return false
	}
	if _, dup := r.seen[msg.ID]; dup {
		r.mu.Unlock()
		return false
	}
	r.seen[msg.ID] = struct{}{}

	if msg.ChannelID == r.open {
		r.timeline = append(r.timeline, msg)
		render := r.onAppend
		r.mu.Unlock()
		if render != nil {
			render(msg)
		}
		return true
	}

	self := msg.UserID == r.selfID
	r.mu.Unlock()

	if !self {
		r.unread.Record(msg)
	}
	return true
}

// Timeline returns a copy of the open channel's rendered messages, appended
// in arrival order. Strict timestamp order is only guaranteed at fetch time;
// the next poll heals transient divergence.
func (r *Reconciler) Timeline() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Message, len(r.timeline))
	copy(out, r.timeline)
	return out
}
