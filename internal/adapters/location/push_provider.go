package location

import (
	"context"
	"errors"
	"sync"

	"github.com/soundwalk/service-tour/internal/domain/tour"
)

var (
	ErrNotTracking     = errors.New("location tracking is not running")
	ErrInvalidPosition = errors.New("invalid position")
)

// DefaultBuffer is the number of fixes held per subscriber before the oldest is dropped.
const DefaultBuffer = 64

// PushProvider is a LocationProvider fed by an outside source, such as fixes
// posted by a device over HTTP or consumed from Kafka.
type PushProvider struct {
	mu        sync.Mutex
	permitted bool
	tracking  bool
	last      *tour.Position
	subs      map[int]chan tour.Position
	nextID    int
	buffer    int
}

// NewPushProvider creates a PushProvider.
func NewPushProvider(permitted bool, buffer int) *PushProvider {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &PushProvider{
		permitted: permitted,
		subs:      make(map[int]chan tour.Position),
		buffer:    buffer,
	}
}

// HasPermission reports whether the walker granted location access.
func (p *PushProvider) HasPermission() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permitted
}

// SetPermission records a permission change reported by the device.
func (p *PushProvider) SetPermission(permitted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permitted = permitted
}

// StartTracking accepts pushed fixes from now on.
func (p *PushProvider) StartTracking(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracking = true
	return nil
}

// StopTracking rejects further fixes and closes every update stream.
func (p *PushProvider) StopTracking() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracking = false
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

// Tracking reports whether fixes are being accepted.
func (p *PushProvider) Tracking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracking
}

// Updates returns a stream of pushed fixes, closed when ctx ends or tracking stops.
func (p *PushProvider) Updates(ctx context.Context) <-chan tour.Position {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan tour.Position, p.buffer)
	if !p.tracking {
		close(ch)
		return ch
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = ch

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}()
	return ch
}

// Push delivers a fix to every stream.
func (p *PushProvider) Push(pos tour.Position) error {
	if !pos.Valid() {
		return ErrInvalidPosition
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tracking {
		return ErrNotTracking
	}
	p.last = &pos
	for _, ch := range p.subs {
		select {
		case ch <- pos:
		default:
			// Full: drop the oldest fix, keep the newest.
			select {
			case <-ch:
			default:
			}
			ch <- pos
		}
	}
	return nil
}

// LastKnown returns the most recent pushed fix.
func (p *PushProvider) LastKnown() (tour.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return tour.Position{}, false
	}
	return *p.last, true
}
