// Package playback implements the ordered narration queue.
package playback

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/platform/broadcast"
	"github.com/soundwalk/service-tour/internal/ports"
	"go.uber.org/zap"
)

// Queue is an ordered, single-consumer narration queue.
//
// Items are kept sorted by SortKey regardless of insertion order. Completion
// of the current utterance, successful or not, advances to the next item.
type Queue struct {
	mu sync.Mutex

	items    []Item
	seen     map[string]struct{} // stop ids enqueued since the last clear
	current  *Item
	state    tour.PlaybackState
	played   int
	degraded bool

	// generation is bumped whenever the current utterance is superseded, so a
	// completion from an interrupted or cleared utterance is ignored.
	generation uint64

	// startDelay holds back the first item after the queue goes from idle to
	// non-empty, so near-simultaneous triggers are sorted before any plays.
	startDelay time.Duration
	startTimer *time.Timer

	// dispatch runs completion handling; it defaults to a direct call.
	dispatch func(func())

	narrator ports.NarrationEngine
	locale   string
	ctx      context.Context
	cancel   context.CancelFunc
	updates  *broadcast.Broadcaster[Snapshot]
	logger   *zap.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithStartDelay sets how long an idle queue waits before playing its head.
// Zero starts playback inside Enqueue.
func WithStartDelay(d time.Duration) Option {
	return func(q *Queue) { q.startDelay = d }
}

// WithDispatcher routes narration completions through dispatch, letting an
// owner serialize them with its other state changes.
func WithDispatcher(dispatch func(func())) Option {
	return func(q *Queue) { q.dispatch = dispatch }
}

// NewQueue creates an idle Queue. A nil or unavailable narrator puts the
// queue in degraded mode: items are accepted but nothing is played.
// Availability is checked again before every item, so the queue can enter
// or leave degraded mode mid-session.
func NewQueue(narrator ports.NarrationEngine, locale string, logger *zap.Logger, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	degraded := narrator == nil || !narrator.Available()
	if degraded {
		logger.Warn("narration engine unavailable, playback disabled")
	}

	q := &Queue{
		seen:     make(map[string]struct{}),
		state:    tour.PlaybackIdle,
		degraded: degraded,
		narrator: narrator,
		locale:   locale,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		dispatch: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(q)
	}
	q.updates = broadcast.New(q.snapshotLocked())
	return q
}

// Enqueue inserts item in sort order. It returns false if an item for the
// same stop was already enqueued. An idle queue starts playing immediately.
func (q *Queue) Enqueue(item Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.seen[item.StopID]; dup {
		return false
	}
	q.seen[item.StopID] = struct{}{}

	// Insert after any equal keys to keep arrival order among ties.
	i := sort.Search(len(q.items), func(i int) bool { return q.items[i].SortKey > item.SortKey })
	q.items = append(q.items, Item{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = item

	q.logger.Debug("narration enqueued",
		zap.String("stop_id", item.StopID),
		zap.Int("sort_key", item.SortKey),
		zap.Int("pending", len(q.items)),
	)

	if q.state == tour.PlaybackIdle && q.checkAvailableLocked() && q.startTimer == nil {
		if q.startDelay <= 0 {
			q.playNextLocked()
		} else {
			gen := q.generation
			q.startTimer = time.AfterFunc(q.startDelay, func() {
				q.dispatch(func() { q.startIfIdle(gen) })
			})
		}
	}
	q.publishLocked()
	return true
}

func (q *Queue) startIfIdle(gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.generation || q.state != tour.PlaybackIdle {
		return
	}
	q.playNextLocked()
	q.publishLocked()
}

// PlayNext pops the head item and plays it, or goes idle when empty.
func (q *Queue) PlayNext() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.playNextLocked()
	q.publishLocked()
}

func (q *Queue) playNextLocked() {
	q.cancelStartLocked()
	if len(q.items) == 0 || !q.checkAvailableLocked() {
		q.current = nil
		q.state = tour.PlaybackIdle
		return
	}

	head := q.items[0]
	q.items = q.items[1:]
	q.current = &head
	q.played++
	q.speakLocked(head)
	q.state = tour.PlaybackPlaying
}

// checkAvailableLocked re-reads narrator availability and updates degraded.
func (q *Queue) checkAvailableLocked() bool {
	available := q.narrator != nil && q.narrator.Available()
	if available == q.degraded {
		if available {
			q.logger.Info("narration engine available again, playback enabled")
		} else {
			q.logger.Warn("narration engine unavailable, playback disabled")
		}
	}
	q.degraded = !available
	return available
}

// Refresh re-checks narrator availability. An idle queue with pending items
// starts playing once the narrator is back.
func (q *Queue) Refresh() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.checkAvailableLocked() && q.state == tour.PlaybackIdle && q.startTimer == nil && len(q.items) > 0 {
		q.playNextLocked()
	}
	q.publishLocked()
}

// speakLocked starts narrating item under a fresh generation.
func (q *Queue) speakLocked(item Item) {
	q.generation++
	gen := q.generation

	done := q.narrator.Speak(q.ctx, item.Narration, q.locale)
	go func() {
		var err error
		if done != nil {
			err = <-done
		}
		q.dispatch(func() { q.onFinished(gen, item, err) })
	}()
}

// onFinished routes every completion, success or error, to the next item.
func (q *Queue) onFinished(gen uint64, item Item, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.generation {
		return
	}
	if err != nil {
		q.logger.Warn("narration failed, advancing",
			zap.String("stop_id", item.StopID),
			zap.Error(err),
		)
	}
	q.playNextLocked()
	q.publishLocked()
}

// Pause stops audio but keeps the current item for Resume.
func (q *Queue) Pause() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != tour.PlaybackPlaying {
		return false
	}
	q.generation++
	q.narrator.StopSpeaking()
	q.state = tour.PlaybackPaused
	q.publishLocked()
	return true
}

// Resume restarts the current item's narration from its beginning.
func (q *Queue) Resume() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != tour.PlaybackPaused || q.current == nil || !q.checkAvailableLocked() {
		return false
	}
	q.speakLocked(*q.current)
	q.state = tour.PlaybackPlaying
	q.publishLocked()
	return true
}

// Stop hard-stops narration and goes idle. Pending items are kept.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopLocked()
	q.publishLocked()
}

func (q *Queue) stopLocked() {
	q.cancelStartLocked()
	q.generation++
	if q.state != tour.PlaybackIdle && q.narrator != nil {
		q.narrator.StopSpeaking()
	}
	q.current = nil
	q.state = tour.PlaybackIdle
}

func (q *Queue) cancelStartLocked() {
	if q.startTimer != nil {
		q.startTimer.Stop()
		q.startTimer = nil
	}
}

// SkipToNext stops the current item and plays the next one.
func (q *Queue) SkipToNext() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopLocked()
	q.playNextLocked()
	q.publishLocked()
}

// Clear empties the queue, forgets enqueued stop ids and stops playback.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
	q.seen = make(map[string]struct{})
	q.stopLocked()
	q.publishLocked()
}

// Close clears the queue and ends the snapshot stream.
func (q *Queue) Close() {
	q.Clear()
	q.cancel()
	q.updates.Close()
}

// Snapshot returns the current queue view.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Subscribe streams queue snapshots until cancel is called or the queue closes.
func (q *Queue) Subscribe() (<-chan Snapshot, func()) {
	return q.updates.Subscribe()
}

// State returns the playback state.
func (q *Queue) State() tour.PlaybackState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the queued items in play order.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item{}, q.items...)
}

// Degraded reports whether narration is unavailable.
func (q *Queue) Degraded() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.degraded
}

func (q *Queue) snapshotLocked() Snapshot {
	s := Snapshot{
		State:    q.state,
		Pending:  append([]Item{}, q.items...),
		Degraded: q.degraded,
		Played:   q.played,
	}
	if q.current != nil {
		cur := *q.current
		s.Current = &cur
	}
	return s
}

func (q *Queue) publishLocked() {
	q.updates.Publish(q.snapshotLocked())
}
